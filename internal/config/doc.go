// Package config loads, normalizes, and validates mediasort configuration.
//
// It supplies repository defaults (mirroring the original recovery layout of
// ./recovery -> ./organized with four parallel workers), expands user paths
// including tilde shortcuts, reads TOML files, and honours MEDIASORT_INPUT_DIR
// and MEDIASORT_OUTPUT_DIR as fallbacks below the config file.
//
// The resulting Config is treated as immutable for the duration of a run;
// components receive the values they need at construction time.
package config
