package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/backend"
	"reelsmith/internal/config"
	"reelsmith/internal/journal"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openJournal() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return journal.Open(cfg.JournalPath())
}

// chapterRun holds an open session and the resources it depends on.
type chapterRun struct {
	session *workflow.Session
	journal *journal.Store
}

func (r *chapterRun) Close() {
	if r.session != nil {
		_ = r.session.Close()
	}
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

// withChapter opens and refreshes a session for chapterID and runs fn with
// it. The command context is cancelled on SIGINT or SIGTERM.
func (c *commandContext) withChapter(cmd *cobra.Command, chapterID string, fn func(context.Context, *workflow.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return fmt.Errorf("chapter id is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := c.loggerValue()
	client, err := backend.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	chapter, err := client.GetChapter(ctx, chapterID)
	if err != nil {
		return fmt.Errorf("load chapter %s: %w", chapterID, err)
	}

	run := &chapterRun{}
	defer run.Close()
	opts := []workflow.SessionOption{
		workflow.WithLogger(logger),
		workflow.WithNotifier(notifications.NewService(cfg)),
	}
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.JournalPath())
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		run.journal = store
		opts = append(opts, workflow.WithJournal(store))
	}
	run.session = workflow.NewSession(cfg, chapter, client, opts...)
	if err := run.session.Open(ctx); err != nil {
		return err
	}
	if err := run.session.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh chapter %s: %w", chapterID, err)
	}
	return fn(ctx, run.session)
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
