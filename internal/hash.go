package internal

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

const (
	HashXXHash = "xxhash"
	HashBLAKE3 = "blake3"

	DefaultHashChunkSize = 64 * 1024
)

// ContentHasher streams file content through a fast hash.
type ContentHasher struct {
	algorithm string
	chunkSize int
}

// NewContentHasher returns a hasher for algorithm ("xxhash" or "blake3").
func NewContentHasher(algorithm string, chunkSize int) (*ContentHasher, error) {
	if algorithm == "" {
		algorithm = HashXXHash
	}
	if algorithm != HashXXHash && algorithm != HashBLAKE3 {
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultHashChunkSize
	}
	return &ContentHasher{algorithm: algorithm, chunkSize: chunkSize}, nil
}

func (h *ContentHasher) newHash() hash.Hash {
	if h.algorithm == HashBLAKE3 {
		return blake3.New()
	}
	return xxhash.New()
}

// Hash returns the lowercase hex digest of the file at path.
func (h *ContentHasher) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	d := h.newHash()
	buf := make([]byte, h.chunkSize)
	if _, err := io.CopyBuffer(d, onlyReader{f}, buf); err != nil {
		return "", fmt.Errorf("failed to read file for hashing: %w", err)
	}

	if d64, ok := d.(hash.Hash64); ok {
		return fmt.Sprintf("%016x", d64.Sum64()), nil
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// onlyReader hides WriterTo/ReaderFrom so CopyBuffer honours the chunk size.
type onlyReader struct {
	io.Reader
}

// HashIndex maps file paths to content digests for the colliding subset of a batch.
type HashIndex struct {
	mu sync.Mutex
	m  map[string]string
}

func NewHashIndex() *HashIndex {
	return &HashIndex{m: make(map[string]string)}
}

func (x *HashIndex) Set(path, digest string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.m[path] = digest
}

func (x *HashIndex) Get(path string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	d, ok := x.m[path]
	return d, ok
}

func (x *HashIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.m)
}
