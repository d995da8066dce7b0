package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeGeneration()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if value, ok := os.LookupEnv("REELSMITH_BACKEND_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.BaseURL = value
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	// Credentials from the environment win over the file.
	if value, ok := os.LookupEnv("REELSMITH_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Backend.APIToken = value
	}
	c.Backend.APIToken = strings.TrimSpace(c.Backend.APIToken)
	if value, ok := os.LookupEnv("REELSMITH_API_KEY_ID"); ok && strings.TrimSpace(value) != "" {
		c.Backend.APIKeyID = value
	}
	c.Backend.APIKeyID = strings.TrimSpace(c.Backend.APIKeyID)
}

func (c *Config) normalizeGeneration() {
	c.Generation.TextModel = strings.TrimSpace(c.Generation.TextModel)
	c.Generation.ImageModel = strings.TrimSpace(c.Generation.ImageModel)
	c.Generation.VideoModel = strings.TrimSpace(c.Generation.VideoModel)
	if c.Generation.VideoModel == "" {
		c.Generation.VideoModel = defaultVideoModel
	}
	c.Generation.Style = strings.TrimSpace(c.Generation.Style)
	if c.Generation.Style == "" {
		c.Generation.Style = defaultStyle
	}
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
