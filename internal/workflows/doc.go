// Package workflows provides the profile facade: the single entry point
// the application layer consumes.
//
// The facade coordinates the store, key manager, sync engine and resilient
// transport to implement complete user-facing operations, independent of
// presentation concerns like flag parsing or output formatting.
//
// # Operations
//
//   - Load: return the cached profile, or fetch/create it remotely
//   - Update: validate and deep-merge patches, then push the affected halves
//   - Sync: run a reconciliation and notify watchers of external changes
//   - Reset: best-effort remote delete plus full local purge
//   - AIContext: the privacy-filtered projection
//   - ExportKeyBackup / ImportKeyBackup: passphrase-wrapped key transfer
//
// # Initialization Lock
//
// Profile creation-on-first-use is guarded by a single shared in-flight
// slot per facade. A caller that observes an initialization in progress
// awaits that operation's result instead of issuing a second create; the
// slot is released in all outcomes. This prevents duplicate remote profiles
// when several surfaces mount concurrently for the same new user.
//
// # Lifecycle
//
// Logout clears every piece of cross-call shared state: the periodic sync
// timer, the circuit breaker table, the init slot and in-memory plaintext.
// Close additionally stops caller-facing callbacks; background pushes
// already handed to the engine complete and commit to the store.
package workflows
