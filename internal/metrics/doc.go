// Package metrics exposes Prometheus metrics for mediasort runs.
//
// A run is a short-lived batch job, so metrics are collected in a private
// registry and written once as a node-exporter textfile instead of being
// served over HTTP.
package metrics
