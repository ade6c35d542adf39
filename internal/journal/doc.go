// Package journal persists an audit trail of mediasort runs in SQLite.
//
// Each run gets one row in runs plus one row per input file in placements,
// recording where the file went and why. The history command reads it back;
// nothing in the relocation pipeline depends on it, so a journal failure is
// logged rather than aborting a run.
package journal
