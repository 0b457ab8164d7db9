package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xhit/go-str2duration/v2"
)

// Config represents the main configuration for nh.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Clean   CleanConfig   `toml:"clean"`
	History HistoryConfig `toml:"history"`
	Nix     NixConfig     `toml:"nix"`
}

// CleanConfig holds the defaults for `nh clean`. Flags given on the command
// line take precedence.
type CleanConfig struct {
	Keep      uint     `toml:"keep"`
	KeepSince Duration `toml:"keep_since"`

	// Accounts with a UID in [UIDMin, UIDMax], plus root, have their personal
	// profile directories scanned by `nh clean all`.
	UIDMin uint32 `toml:"uid_min"`
	UIDMax uint32 `toml:"uid_max"`

	// GCRootPatterns replaces the built-in list when non-empty.
	GCRootPatterns []GCRootPattern `toml:"gcroot_patterns"`
}

// GCRootPattern is a named regular expression matched against GC-root targets.
type GCRootPattern struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
}

// HistoryConfig represents configuration for the clean history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type HistoryConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NixConfig names the external commands nh runs.
type NixConfig struct {
	GCCommand      []string `toml:"gc_command"`
	ElevateCommand string   `toml:"elevate_command"`
}

// Duration is a time.Duration that reads and writes human-readable strings
// such as "30d", "2w" or "12h".
type Duration struct {
	time.Duration
}

// ParseDuration parses a human-readable duration. Besides the units accepted by
// time.ParseDuration it understands "d" (days) and "w" (weeks). An empty string
// is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return []byte("0s"), nil
	}
	return []byte(str2duration.String(d.Duration)), nil
}

// NewConfig creates a new Config rooted at baseDir with built-in defaults.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Clean: CleanConfig{
			Keep:   1,
			UIDMin: 1000,
			UIDMax: 59999,
		},
		History: HistoryConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Nix: NixConfig{
			GCCommand:      []string{"nix-store", "--gc"},
			ElevateCommand: "sudo",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader on top of the defaults for
// baseDir, so keys absent from the file keep their default values.
func (m *Manager) Read(r io.Reader, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path. A missing file is
// not an error: the defaults for baseDir are returned instead.
func ReadFromFile(path, baseDir string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewConfig(baseDir), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f, baseDir)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding alone.
func (c *Config) Validate() error {
	if c.Clean.UIDMin > c.Clean.UIDMax {
		return fmt.Errorf("clean.uid_min (%d) is greater than clean.uid_max (%d)", c.Clean.UIDMin, c.Clean.UIDMax)
	}
	if len(c.Nix.GCCommand) == 0 {
		return fmt.Errorf("nix.gc_command must not be empty")
	}
	for i, p := range c.Clean.GCRootPatterns {
		if strings.TrimSpace(p.Pattern) == "" {
			return fmt.Errorf("clean.gcroot_patterns[%d] has an empty pattern", i)
		}
	}
	return nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
