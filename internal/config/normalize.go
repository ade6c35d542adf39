package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOrganize()
	c.normalizeMetadata()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOrganize() {
	c.Organize.Extensions = NormalizeExtensions(c.Organize.Extensions)
	c.Organize.UnknownDir = strings.TrimSpace(c.Organize.UnknownDir)
	if c.Organize.UnknownDir == "" {
		c.Organize.UnknownDir = defaultUnknownDir
	}
	c.Organize.Timezone = strings.TrimSpace(c.Organize.Timezone)
	if c.Organize.Timezone == "" {
		c.Organize.Timezone = defaultTimezone
	}
	c.Organize.FatalPolicy = strings.ToLower(strings.TrimSpace(c.Organize.FatalPolicy))
	if c.Organize.FatalPolicy == "" {
		c.Organize.FatalPolicy = defaultFatalPolicy
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.Backend = strings.ToLower(strings.TrimSpace(c.Metadata.Backend))
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = defaultMetadataBackend
	}
	c.Metadata.FFprobeBinary = strings.TrimSpace(c.Metadata.FFprobeBinary)
	if c.Metadata.FFprobeBinary == "" {
		c.Metadata.FFprobeBinary = defaultFFprobeBinary
	}
	c.Metadata.ExiftoolBinary = strings.TrimSpace(c.Metadata.ExiftoolBinary)
	if c.Metadata.ExiftoolBinary == "" {
		c.Metadata.ExiftoolBinary = defaultExiftoolBinary
	}
	if c.Metadata.TimeoutSeconds == 0 {
		c.Metadata.TimeoutSeconds = defaultMetadataTimeout
	}
}

func (c *Config) normalizeJournal() error {
	path := strings.TrimSpace(c.Journal.Path)
	if path == "" {
		path = filepath.Join(c.Paths.StateDir, defaultJournalFilename)
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	c.Journal.Path = expanded
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyRequestTimeout <= 0 {
		c.Notifications.NtfyRequestTimeout = defaultNtfyRequestTimeout
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

// NormalizeExtensions lowercases, trims leading dots and drops blanks and
// duplicates while preserving the first-seen order.
func NormalizeExtensions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		ext = strings.TrimLeft(ext, ".")
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
