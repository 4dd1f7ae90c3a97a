package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	LibraryDir         string `toml:"library_dir" env:"SCUMMSYNC_LIBRARY_DIR"`
	ConfigFile         string `toml:"config_file" env:"SCUMMSYNC_CONFIG_FILE"`
	LibretroConfigFile string `toml:"libretro_config_file" env:"SCUMMSYNC_LIBRETRO_CONFIG_FILE"`
	StateDir           string `toml:"state_dir" env:"SCUMMSYNC_STATE_DIR"`
	LogDir             string `toml:"log_dir" env:"SCUMMSYNC_LOG_DIR"`
}

// Engine describes how the external game engine is invoked.
type Engine struct {
	Binary string   `toml:"binary" env:"SCUMMSYNC_ENGINE_BINARY"`
	Args   []string `toml:"args" env:"SCUMMSYNC_ENGINE_ARGS"`
	// PassConfig prepends --config=<config_file> to every engine invocation
	// so the engine reads and writes the same store scummsync reconciles.
	PassConfig    bool `toml:"pass_config" env:"SCUMMSYNC_ENGINE_PASS_CONFIG"`
	DetectTimeout int  `toml:"detect_timeout" env:"SCUMMSYNC_ENGINE_DETECT_TIMEOUT"`
}

// Markers contains marker file naming.
type Markers struct {
	Extension string `toml:"extension" env:"SCUMMSYNC_MARKER_EXTENSION"`
}

// Store contains configuration-store handling options.
type Store struct {
	DefaultsSection string `toml:"defaults_section" env:"SCUMMSYNC_DEFAULTS_SECTION"`
	Backup          bool   `toml:"backup" env:"SCUMMSYNC_BACKUP"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" env:"SCUMMSYNC_LOG_FORMAT"`
	Level         string `toml:"level" env:"SCUMMSYNC_LOG_LEVEL"`
	RetentionDays int    `toml:"retention_days" env:"SCUMMSYNC_LOG_RETENTION_DAYS"`
}

// Config encapsulates all configuration values for scummsync.
//
// Configuration sections by subsystem:
//   - Paths: game library, engine config stores, state and log directories
//   - Engine: external engine binary and invocation options
//   - Markers: marker file naming
//   - Store: reserved defaults section and backup behaviour
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Engine  Engine  `toml:"engine"`
	Markers Markers `toml:"markers"`
	Store   Store   `toml:"store"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scummsync/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file. The returned config has all path
// fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scummsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The library
// directory is never created: a missing library means a misconfiguration or
// unmounted storage, and reconciling against an empty tree would purge every
// game section.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EngineBinary returns the external engine executable.
func (c *Config) EngineBinary() string {
	if binary := strings.TrimSpace(c.Engine.Binary); binary != "" {
		return binary
	}
	return defaultEngineBinary
}

// EngineBaseArgs returns the arguments that precede every engine invocation.
func (c *Config) EngineBaseArgs() []string {
	args := make([]string, 0, len(c.Engine.Args)+1)
	if c.Engine.PassConfig && c.Paths.ConfigFile != "" {
		args = append(args, "--config="+c.Paths.ConfigFile)
	}
	for _, arg := range c.Engine.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	return args
}

// DetectTimeout returns the timeout applied to detector invocations.
func (c *Config) DetectTimeout() time.Duration {
	return time.Duration(c.Engine.DetectTimeout) * time.Second
}

// StoreFile resolves a store selector ("native" or "libretro") to its path.
func (c *Config) StoreFile(selector string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "", StoreNative:
		return c.Paths.ConfigFile, nil
	case StoreLibretro:
		return c.Paths.LibretroConfigFile, nil
	default:
		return "", fmt.Errorf("unknown store %q: expected %s or %s", selector, StoreNative, StoreLibretro)
	}
}

// Store selectors accepted by StoreFile.
const (
	StoreNative   = "native"
	StoreLibretro = "libretro"
)

// LockPath returns the advisory lock file guarding launch and sync runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "scummsync.lock")
}

// HistoryPath returns the session history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
