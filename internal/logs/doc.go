// Package logs reads the JSON log file written by mediasort runs.
//
// Tail returns the last matching entries with bounded memory; Follow polls
// for appended lines until its context ends. Both understand the record
// layout produced by internal/logging and can narrow output to one run.
package logs
