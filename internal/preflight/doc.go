// Package preflight provides readiness checks for the filesystem paths and
// external binaries mediasort depends on.
//
// These checks run in two contexts:
//   - The runner calls RunAll before discovery and refuses to start when a
//     required check fails.
//   - The "mediasort doctor" command prints every check, including the
//     informational ones.
package preflight
