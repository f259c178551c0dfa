// Package configs manages persistent configuration for the profilesync
// engine.
//
// Settings are stored as TOML under the user's config directory
// (~/.config/profilesync/config.toml on Linux). Every field has a default,
// so a missing or partial config file is never an error.
//
// # Settings
//
// Configuration is split into three sections:
//
//   - [remote]: profile service URL, request timeout, retry/backoff and
//     circuit breaker parameters
//   - [sync]: periodic background sync interval
//   - [local]: path of the sqlite file backing the local profile cache
//
// CLI flags override file values; the file is only written by explicit
// user action, never implicitly.
package configs
