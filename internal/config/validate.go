package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRemote() error {
	parsed, err := url.Parse(c.Remote.BaseURL)
	if err != nil {
		return fmt.Errorf("remote.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("remote.base_url must use http or https, got %q", c.Remote.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("remote.base_url must include a host")
	}
	return nil
}

func (c *Config) validateServer() error {
	switch c.Server.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("server.db_driver: unsupported value %q (want sqlite, postgres or mysql)", c.Server.DBDriver)
	}
	if c.Server.DBDSN == "" {
		return fmt.Errorf("server.db_dsn is required for %s. Set NCSTORED_DB_DSN or edit the config file", c.Server.DBDriver)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
