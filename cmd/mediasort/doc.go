// Package main hosts the mediasort CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, applies per-run flag
// overrides, and hands the work to internal/runner. Reports, run history and
// readiness checks are rendered here; everything else lives in the internal
// packages.
package main
