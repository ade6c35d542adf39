package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOrganize(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if filepath.Clean(c.Paths.InputDir) == filepath.Clean(c.Paths.OutputDir) {
		return errors.New("paths.output_dir must differ from paths.input_dir")
	}
	return nil
}

func (c *Config) validateOrganize() error {
	if c.Organize.Concurrency < 1 {
		return fmt.Errorf("organize.concurrency must be at least 1 (got %d)", c.Organize.Concurrency)
	}
	if len(c.Organize.Extensions) == 0 {
		return errors.New("organize.extensions must list at least one extension")
	}
	name := c.Organize.UnknownDir
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("organize.unknown_dir must be a single directory name (got %q)", name)
	}
	if _, err := loadLocation(c.Organize.Timezone); err != nil {
		return fmt.Errorf("organize.timezone: %w", err)
	}
	switch c.Organize.FatalPolicy {
	case FatalPolicyContinue, FatalPolicyAbort:
	default:
		return fmt.Errorf("organize.fatal_policy must be %q or %q (got %q)", FatalPolicyContinue, FatalPolicyAbort, c.Organize.FatalPolicy)
	}
	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.Backend {
	case BackendAuto, BackendExiftool, BackendExif, BackendFFprobe, BackendNone:
	default:
		return fmt.Errorf("metadata.backend: unsupported value %q", c.Metadata.Backend)
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		return errors.New("metadata.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL (got %q)", topic)
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
