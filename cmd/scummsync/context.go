package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"scummsync/internal/config"
	"scummsync/internal/fileutil"
	"scummsync/internal/history"
	"scummsync/internal/inistore"
	"scummsync/internal/logging"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		debugFlag:  debugFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) debug() bool {
	return c.debugFlag != nil && *c.debugFlag
}

// logger builds the command logger once and prunes expired log files.
func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg, c.debug())
		if err != nil {
			c.log = logging.NewNop()
			return
		}
		c.log = logger
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.DailyLogTarget(cfg.Paths.LogDir, time.Now()))
	})
	return c.log
}

// openHistory opens the session history. A failure is logged and reported as
// nil so commands can run without it. Callers close the store.
func (c *commandContext) openHistory() *history.Store {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(c.logger(), "session history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions of "+cfg.HistoryPath()),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return nil
	}
	return store
}

// loadStore reads the store selected by selector ("native" or "libretro").
func (c *commandContext) loadStore(selector string) (*inistore.Store, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	path, err := cfg.StoreFile(selector)
	if err != nil {
		return nil, "", err
	}
	store, err := inistore.Load(path)
	if err != nil {
		return nil, path, err
	}
	return store, path, nil
}

// saveStore writes store to path, keeping a .bak copy first when enabled.
func (c *commandContext) saveStore(store *inistore.Store, path string) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Backup {
		if _, err := fileutil.Backup(path); err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
	}
	return store.Save(path)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func isNotFound(err error) bool {
	return errors.Is(err, inistore.ErrNotFound)
}
