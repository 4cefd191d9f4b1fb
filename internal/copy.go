package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// ErrSourceNotRemoved means a cross-device move copied the file but could not
// delete the original. The destination is complete.
var ErrSourceNotRemoved = errors.New("copied across devices but failed to remove source")

// ErrSymlink marks inputs that are symbolic links; they are never followed.
var ErrSymlink = errors.New("source is a symbolic link")

// relocate places src at dest according to mode. dest's parent must exist
// and dest itself must not.
func relocate(mode Mode, src, dest string) error {
	switch mode {
	case ModeMove:
		return moveFile(src, dest)
	case ModeCopy:
		return copyFileAtomic(src, dest)
	case ModeSymlink:
		return symlinkFile(src, dest)
	}
	return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

// moveFile renames src to dest, falling back to copy+remove across filesystems.
func moveFile(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %s to %s: %w", src, dest, err)
	}

	if err := copyFileAtomic(src, dest); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceNotRemoved, err)
	}
	return nil
}

// copyFileAtomic copies via a temp file in dest's directory, then renames it into place.
func copyFileAtomic(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	out, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	_ = os.Chmod(tmp, info.Mode().Perm())
	_ = os.Chtimes(tmp, info.ModTime(), info.ModTime())

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename into %s: %w", dest, err)
	}
	return nil
}

// symlinkFile links dest to the absolute path of src.
func symlinkFile(src, dest string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", src, err)
	}
	if err := os.Symlink(abs, dest); err != nil {
		return fmt.Errorf("failed to symlink %s: %w", dest, err)
	}
	return nil
}

// sameFile reports whether a and b name the same file on disk.
func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// exists reports whether path names something on disk, without following links.
func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
