// Package organizer implements the relocation pipeline: classify each media
// file by capture date, place it into a date bucket or the unknown directory
// without ever overwriting, and run that work over a file list with bounded
// concurrency.
//
// The pieces compose leaves first. Classifier turns metadata tags (or the
// file modification time) into a Bucket. Placer owns the output tree and the
// collision-free naming scheme. Worker combines both into one per-file unit
// that always returns an Outcome. Scheduler drives Workers over a batch and
// aggregates a Summary.
package organizer
