package internal

import (
	"errors"
	"path/filepath"
	"testing"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Mode != string(ModeMove) {
		t.Errorf("Expected mode move, got %s", cfg.Mode)
	}
	if cfg.AllowMtimeFallback {
		t.Error("Expected mtime fallback off by default")
	}
	if !cfg.Manifest {
		t.Error("Expected manifest on by default")
	}
	if len(cfg.Backends) != len(DefaultBackends) {
		t.Errorf("Expected default backends %v, got %v", DefaultBackends, cfg.Backends)
	}
	if cfg.HashAlgorithm != HashXXHash {
		t.Errorf("Expected xxhash, got %s", cfg.HashAlgorithm)
	}
	if !cfg.IsMediaExt(".JPG") || !cfg.IsMediaExt(".mov") || cfg.IsMediaExt(".txt") {
		t.Error("Unexpected default media extensions")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	isolateConfig(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "sortify.toml"), `
output_dir = "/srv/photos"
mode = "symlink"
workers = 3
backends = ["MP4", " goexif "]
image_extensions = ["JPG", ".png"]
`)
	t.Setenv("SORTIFY_MODE", "copy")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.OutputDir != "/srv/photos" || cfg.Workers != 3 {
		t.Errorf("Expected file values, got %s %d", cfg.OutputDir, cfg.Workers)
	}
	if cfg.Mode != "copy" {
		t.Errorf("Expected env to override mode, got %s", cfg.Mode)
	}
	if len(cfg.Backends) != 2 || cfg.Backends[0] != BackendMP4 || cfg.Backends[1] != BackendGoExif {
		t.Errorf("Expected normalized backends, got %v", cfg.Backends)
	}
	if len(cfg.ImageExt) != 2 || cfg.ImageExt[0] != ".jpg" {
		t.Errorf("Expected normalized extensions, got %v", cfg.ImageExt)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolateConfig(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected error for a missing explicit config file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{OutputDir: "out", Mode: "move", Backends: []string{BackendGoExif}}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"bad mode", func(c *Config) { c.Mode = "hardlink" }, false},
		{"negative workers", func(c *Config) { c.Workers = -2 }, false},
		{"no backends", func(c *Config) { c.Backends = nil }, false},
		{"unknown backend", func(c *Config) { c.Backends = []string{"ffprobe"} }, false},
		{"unknown hash", func(c *Config) { c.HashAlgorithm = "sha1" }, false},
		{"blake3", func(c *Config) { c.HashAlgorithm = HashBLAKE3 }, true},
		{"negative chunk", func(c *Config) { c.HashChunkSize = -1 }, false},
		{"empty output", func(c *Config) { c.OutputDir = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"move": ModeMove, "COPY": ModeCopy, " symlink ": ModeSymlink} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseMode("rsync"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Errorf("Expected at least one worker, got %d", DefaultWorkers())
	}
}
