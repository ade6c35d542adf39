package faults_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mediasort/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.ErrPlacement, "placer", "move", "rename failed", base)
	if !errors.Is(err, faults.ErrPlacement) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"placer", "move", "rename failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaults(t *testing.T) {
	err := faults.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, faults.ErrTransient) {
		t.Fatalf("expected transient marker for nil marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "pipeline failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"classification", faults.Wrap(faults.ErrClassification, "classifier", "parse", "bad date", nil), "classification"},
		{"placement", faults.Wrap(faults.ErrPlacement, "placer", "move", "", errors.New("io")), "placement"},
		{"canceled wins", faults.Wrap(faults.ErrPlacement, "placer", "move", "", context.Canceled), "canceled"},
		{"tool", fmt.Errorf("outer: %w", faults.Wrap(faults.ErrExternalTool, "exiftool", "start", "", nil)), "external_tool"},
		{"plain", errors.New("boom"), "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.Category(tt.err); got != tt.want {
				t.Fatalf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}
