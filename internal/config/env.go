package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// applyEnv overlays SCUMMSYNC_* environment variables onto cfg. Unset
// variables leave the file or default value untouched.
func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
