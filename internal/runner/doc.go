// Package runner wires one mediasort invocation together: preflight checks,
// the output lock, discovery, the metadata backend, the relocation pipeline
// and the optional journal and metrics sinks.
package runner
