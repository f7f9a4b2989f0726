package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/dispatch"
	"sitelog/internal/ingest"
	"sitelog/internal/notifications"
	"sitelog/internal/payload"
	"sitelog/internal/services/objectstore"
	"sitelog/internal/session"
	"sitelog/internal/store"
	"sitelog/internal/syncer"
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

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
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

// withStore runs fn against a freshly opened store and closes it afterwards.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

func (c *commandContext) sessionService(st *store.Store) *session.Service {
	return session.NewService(st, nil)
}

// newPipeline wires the full dispatch pipeline for one-shot CLI sync commands.
func (c *commandContext) newPipeline(cfg *config.Config, st *store.Store) (*dispatch.Dispatcher, *syncer.Syncer, error) {
	signer, err := objectstore.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	builder := payload.NewBuilder(st, signer)
	processor := ingest.NewProcessor(st, nil)
	notifier := notifications.NewService(cfg)
	dispatcher := dispatch.NewDispatcher(cfg, st, builder, processor, notifier, nil, nil)
	return dispatcher, syncer.New(cfg, st, dispatcher, notifier, nil), nil
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
