package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrInvalidMode = errors.New("invalid relocation mode")
	ErrNoInputs    = errors.New("no input files")
)

// Mode selects how a file reaches its destination.
type Mode string

const (
	ModeMove    Mode = "move"
	ModeCopy    Mode = "copy"
	ModeSymlink Mode = "symlink"
)

// ParseMode accepts "move", "copy" or "symlink" in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMove, ModeCopy, ModeSymlink:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want move, copy or symlink)", ErrInvalidMode, s)
}

type Config struct {
	OutputDir          string   `mapstructure:"output_dir"`
	Mode               string   `mapstructure:"mode"`
	Workers            int      `mapstructure:"workers"`
	AllowMtimeFallback bool     `mapstructure:"allow_mtime_fallback"`
	Backends           []string `mapstructure:"backends"`
	ExifToolPath       string   `mapstructure:"exiftool_path"`
	HashAlgorithm      string   `mapstructure:"hash_algorithm"`
	HashChunkSize      int      `mapstructure:"hash_chunk_size"`
	FilesystemCutoff   int      `mapstructure:"filesystem_cutoff_year"`
	ImageExt           []string `mapstructure:"image_extensions"`
	VideoExt           []string `mapstructure:"video_extensions"`
	SniffContent       bool     `mapstructure:"sniff_content"`
	LogFile            string   `mapstructure:"log_file"`
	Manifest           bool     `mapstructure:"manifest"`
	BrowseLinks        bool     `mapstructure:"browse_links"`
	Limit              int      `mapstructure:"limit"`
}

// DefaultWorkers is half the logical CPUs, at least one.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// SetDefaults registers every config key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", ".")
	v.SetDefault("mode", string(ModeMove))
	v.SetDefault("workers", 0)
	v.SetDefault("allow_mtime_fallback", false)
	v.SetDefault("backends", DefaultBackends)
	v.SetDefault("exiftool_path", "")
	v.SetDefault("hash_algorithm", HashXXHash)
	v.SetDefault("hash_chunk_size", DefaultHashChunkSize)
	v.SetDefault("filesystem_cutoff_year", DefaultFilesystemCutoffYear)
	v.SetDefault("image_extensions", []string{".jpg", ".jpeg", ".png", ".gif", ".heic", ".heif", ".tif", ".tiff", ".webp", ".cr2", ".nef", ".arw", ".dng"})
	v.SetDefault("video_extensions", []string{".mp4", ".mov", ".m4v", ".3gp", ".avi", ".mkv"})
	v.SetDefault("sniff_content", false)
	v.SetDefault("log_file", "")
	v.SetDefault("manifest", true)
	v.SetDefault("browse_links", false)
	v.SetDefault("limit", 0)
}

// NewViper returns a viper instance wired to sortify.toml and SORTIFY_* env vars.
// configFile overrides the search path when non-empty.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("SORTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("sortify")
	v.SetConfigType("toml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "sortify"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// no config file; defaults apply
	}
	return v, nil
}

// DecodeConfig unmarshals and validates v.
func DecodeConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads the config file (if any) and environment.
func LoadConfig(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(v)
}

func (c *Config) normalize() {
	c.ImageExt = normalizeExtList(c.ImageExt)
	c.VideoExt = normalizeExtList(c.VideoExt)
	backends := make([]string, 0, len(c.Backends))
	for _, b := range c.Backends {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			backends = append(backends, b)
		}
	}
	c.Backends = backends
	c.HashAlgorithm = strings.ToLower(strings.TrimSpace(c.HashAlgorithm))
}

func normalizeExtList(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// Validate rejects configurations that would fail before any file is touched.
func (c *Config) Validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if len(c.Backends) == 0 {
		return errors.New("at least one metadata backend is required")
	}
	for _, b := range c.Backends {
		if !slices.Contains(DefaultBackends, b) {
			return fmt.Errorf("unknown metadata backend %q (known: %s)", b, strings.Join(DefaultBackends, ", "))
		}
	}
	if c.HashAlgorithm != "" && c.HashAlgorithm != HashXXHash && c.HashAlgorithm != HashBLAKE3 {
		return fmt.Errorf("unknown hash algorithm %q", c.HashAlgorithm)
	}
	if c.HashChunkSize < 0 {
		return fmt.Errorf("hash_chunk_size must be >= 0, got %d", c.HashChunkSize)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	return nil
}

// IsMediaExt reports whether ext (with leading dot) is a configured media extension.
func (c *Config) IsMediaExt(ext string) bool {
	ext = strings.ToLower(ext)
	return slices.Contains(c.ImageExt, ext) || slices.Contains(c.VideoExt, ext)
}
