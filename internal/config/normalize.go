package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		c.Paths.CacheFile = filepath.Join(c.Paths.DataDir, defaultCacheFile)
	}
	if c.Paths.CacheFile, err = expandPath(c.Paths.CacheFile); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.CredentialFile) == "" {
		c.Paths.CredentialFile = filepath.Join(c.Paths.DataDir, defaultCredentialFile)
	}
	if c.Paths.CredentialFile, err = expandPath(c.Paths.CredentialFile); err != nil {
		return fmt.Errorf("paths.credential_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateFile) == "" {
		c.Paths.StateFile = filepath.Join(c.Paths.DataDir, defaultStateFile)
	}
	if c.Paths.StateFile, err = expandPath(c.Paths.StateFile); err != nil {
		return fmt.Errorf("paths.state_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = defaultRemoteBaseURL
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeout
	}
	c.Remote.Token = strings.TrimSpace(c.Remote.Token)
	if c.Remote.Token == "" {
		if value, ok := os.LookupEnv("NCBOARD_TOKEN"); ok {
			c.Remote.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("NCSTORED_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	c.Server.DBDriver = strings.ToLower(strings.TrimSpace(c.Server.DBDriver))
	if c.Server.DBDriver == "" {
		c.Server.DBDriver = defaultDBDriver
	}
	c.Server.DBDSN = strings.TrimSpace(c.Server.DBDSN)
	if c.Server.DBDSN == "" {
		if value, ok := os.LookupEnv("NCSTORED_DB_DSN"); ok {
			c.Server.DBDSN = strings.TrimSpace(value)
		}
	}
	if c.Server.DBDSN == "" && c.Server.DBDriver == "sqlite" {
		c.Server.DBDSN = filepath.Join(c.Paths.DataDir, defaultDBFile)
	}
	if c.Server.DBDriver == "sqlite" {
		var err error
		if c.Server.DBDSN, err = expandPath(c.Server.DBDSN); err != nil {
			return fmt.Errorf("server.db_dsn: %w", err)
		}
	}
	if c.Server.DBTimeoutSeconds <= 0 {
		c.Server.DBTimeoutSeconds = defaultDBTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
