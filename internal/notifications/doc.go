// Package notifications delivers job and stage events via ntfy.
//
// The ntfy implementation posts to the topic configured in config.toml and
// degrades to a no-op when no topic is set. Workflow code depends only on the
// Service interface.
package notifications
