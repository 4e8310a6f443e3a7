package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ncboard/internal/config"
	"ncboard/internal/credentials"
	"ncboard/internal/ingest"
	"ncboard/internal/logging"
	"ncboard/internal/mutation"
	"ncboard/internal/remote"
	"ncboard/internal/session"
	"ncboard/internal/snapshots"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	cacheOnce sync.Once
	cache     *snapshots.Store

	session *session.Session
	creds   *credentials.File
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
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

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// log writes to <log_dir>/ncboard.log only; the terminal gets status lines.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		c.logger = logging.NewNop()
		if c.config == nil || c.config.Paths.LogDir == "" {
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       c.config.Logging.Level,
			Format:      c.config.Logging.Format,
			OutputPaths: []string{filepath.Join(c.config.Paths.LogDir, "ncboard.log")},
		})
		if err == nil {
			c.logger = logger
		}
	})
	return c.logger
}

// snapshotCache opens the local cache and backfills legacy entries once.
func (c *commandContext) snapshotCache() *snapshots.Store {
	c.cacheOnce.Do(func() {
		c.cache = snapshots.NewStore(c.config.Paths.CacheFile, c.log())
		c.cache.Migrate()
	})
	return c.cache
}

func (c *commandContext) credentials() *credentials.File {
	if c.creds == nil {
		c.creds = credentials.NewFile(c.config.Paths.CredentialFile, c.config.Remote.Token)
	}
	return c.creds
}

func (c *commandContext) remoteClient() (*remote.Client, error) {
	return remote.NewClient(c.config.Remote.BaseURL, c.config.RemoteTimeout(), c.credentials(), c.log())
}

// loadSession restores the working set saved by the previous command.
func (c *commandContext) loadSession() (*session.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	sess, err := session.Load(c.config.Paths.StateFile)
	if err != nil {
		return nil, fmt.Errorf("%w (remove %s to start over)", err, c.config.Paths.StateFile)
	}
	c.session = sess
	return sess, nil
}

func (c *commandContext) saveSession() error {
	if c.session == nil {
		return nil
	}
	if err := c.session.Save(c.config.Paths.StateFile); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *commandContext) ingestService() (*ingest.Service, *session.Session, error) {
	sess, err := c.loadSession()
	if err != nil {
		return nil, nil, err
	}
	client, err := c.remoteClient()
	if err != nil {
		return nil, nil, err
	}
	return ingest.NewService(sess, c.snapshotCache(), client, c.log()), sess, nil
}

func (c *commandContext) coordinator() (*mutation.Coordinator, *session.Session, error) {
	sess, err := c.loadSession()
	if err != nil {
		return nil, nil, err
	}
	client, err := c.remoteClient()
	if err != nil {
		return nil, nil, err
	}
	return mutation.New(sess, client, c.snapshotCache(), c.log()), sess, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func (c *commandContext) status(out io.Writer, label string, kind statusKind, message string) {
	fmt.Fprintln(out, renderStatusLine(label, kind, message, shouldColorize(out)))
}
