// Package config loads, normalizes, and validates reelsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REELSMITH_API_TOKEN. The Config type centralizes the backend endpoint, the
// polling cadence, default model selections and local state directories so the
// CLI and sessions discover them in one pass.
package config
