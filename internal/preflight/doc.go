// Package preflight provides readiness checks for the generation backend
// and the local paths reelsmith depends on.
//
// The CLI "reelsmith doctor" command runs RunAll and prints one line per
// check. Checks for disabled features are skipped.
package preflight
