// Package deps reports on the external binaries mediasort can use for
// metadata extraction.
package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mediasort/internal/config"
)

// Requirement defines an external dependency mediasort relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs are passed to Command to print its version. Empty skips the
	// version probe.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

const versionTimeout = 5 * time.Second

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		if len(req.VersionArgs) > 0 {
			status.Version = probeVersion(ctx, path, req.VersionArgs)
		}
		results = append(results, status)
	}
	return results
}

// MetadataRequirements lists the binaries relevant to the configured
// metadata backend. A binary is required only when the backend names it
// explicitly.
func MetadataRequirements(cfg config.Metadata) []Requirement {
	return []Requirement{
		{
			Name:        "ExifTool",
			Command:     cfg.ExiftoolBinary,
			Description: "Reads capture dates from every supported format",
			Optional:    cfg.Backend != config.BackendExiftool,
			VersionArgs: []string{"-ver"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary,
			Description: "Reads creation dates from video containers",
			Optional:    cfg.Backend != config.BackendFFprobe,
			VersionArgs: []string{"-version"},
		},
	}
}

// probeVersion returns the first output line of the version command, or ""
// when it fails.
func probeVersion(ctx context.Context, path string, args []string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
