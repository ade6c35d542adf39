// Package faults defines the error markers shared by the relocation pipeline.
//
// Errors are wrapped with Wrap so every failure carries a stable marker for
// errors.Is checks plus human-readable stage and operation context. Category
// maps a wrapped error back to the short label recorded in the run journal.
package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClassification marks failures to derive a capture date for a file.
	ErrClassification = errors.New("classification error")
	// ErrPlacement marks failures to move a file into the output tree.
	ErrPlacement     = errors.New("placement error")
	ErrDiscovery     = errors.New("discovery error")
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category returns the journal label for err.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrClassification):
		return "classification"
	case errors.Is(err, ErrPlacement):
		return "placement"
	case errors.Is(err, ErrDiscovery):
		return "discovery"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unexpected"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
