package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
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

// withStore opens the event database for the duration of one command. SQLite
// in WAL mode tolerates the daemon holding the same file open.
func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer st.Close()
	return fn(st)
}

// apiBaseURL returns the daemon status API base, or "" when the API is not
// configured.
func (c *commandContext) apiBaseURL() string {
	cfg, err := c.ensureConfig()
	if err != nil {
		return ""
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return ""
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	return bind
}
