package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout of a run.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Organize contains the relocation pipeline settings.
type Organize struct {
	Concurrency int      `toml:"concurrency"`
	Extensions  []string `toml:"extensions"`
	// UnknownDir is the quarantine directory name directly under the output root.
	UnknownDir string `toml:"unknown_dir"`
	// Timezone governs year/month derivation. "Local" uses the process zone.
	Timezone string `toml:"timezone"`
	// QuarantineOnPlacementFailure routes files whose date-bucket move failed
	// into the unknown directory instead of reporting them as fatal.
	QuarantineOnPlacementFailure bool   `toml:"quarantine_on_placement_failure"`
	FatalPolicy                  string `toml:"fatal_policy"`
	LockOutput                   bool   `toml:"lock_output"`
	SkipHidden                   bool   `toml:"skip_hidden"`
}

// Metadata selects and configures the timestamp extraction backend.
type Metadata struct {
	Backend        string `toml:"backend"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	ExiftoolBinary string `toml:"exiftool_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Journal controls the SQLite audit log of runs and placements.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications configures run summaries pushed to ntfy.
type Notifications struct {
	// NtfyTopic is the full topic URL, for example https://ntfy.sh/my-photos.
	// Empty disables notifications.
	NtfyTopic          string `toml:"ntfy_topic"`
	NtfyRequestTimeout int    `toml:"ntfy_request_timeout"`
	// NotifyEmptyRuns sends a summary even when nothing was discovered.
	NotifyEmptyRuns bool `toml:"notify_empty_runs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediasort.
//
// Configuration sections by subsystem:
//   - Paths: input/output roots plus log and state directories
//   - Organize: concurrency, allow-list, quarantine and failure policy
//   - Metadata: timestamp extraction backend
//   - Journal: SQLite run history
//   - Metrics: Prometheus textfile export
//   - Notifications: ntfy run summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Organize      Organize      `toml:"organize"`
	Metadata      Metadata      `toml:"metadata"`
	Journal       Journal       `toml:"journal"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	cfg.applyEnv()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the config. Callers that mutate a loaded
// config (for example from CLI flags) must call it again.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(envInputDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.InputDir = value
	}
	if value, ok := os.LookupEnv(envOutputDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = value
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFilename)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories mediasort writes to besides the
// output tree, which the placer creates lazily.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Journal.Enabled {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location returns the time zone used for bucket derivation.
func (c *Config) Location() (*time.Location, error) {
	return loadLocation(c.Organize.Timezone)
}

// UnknownPath returns the absolute quarantine directory.
func (c *Config) UnknownPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Organize.UnknownDir)
}

// OutputLockPath returns the advisory lock file guarding the output tree.
func (c *Config) OutputLockPath() string {
	return filepath.Join(c.Paths.OutputDir, outputLockFilename)
}

// MetadataTimeout returns the per-file metadata extraction timeout.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSeconds) * time.Second
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	if strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
