package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMarkers(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.LibraryDir == string(filepath.Separator) {
		return errors.New("paths.library_dir must not be the filesystem root")
	}
	if c.Paths.ConfigFile == "" {
		return errors.New("paths.config_file must be set")
	}
	if c.Paths.LibretroConfigFile != "" && c.Paths.LibretroConfigFile == c.Paths.ConfigFile {
		return errors.New("paths.libretro_config_file must differ from paths.config_file")
	}
	return nil
}

func (c *Config) validateMarkers() error {
	ext := c.Markers.Extension
	if len(ext) < 2 || strings.ContainsAny(ext[1:], `/\.`) {
		return fmt.Errorf("markers.extension: invalid value %q", ext)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
