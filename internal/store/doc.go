// Package store is the local persistent cache behind the sync engine.
//
// Four sqlite tables, all keyed by user id to avoid cross-account leakage:
// the public profile document, the encrypted private blob, sync metadata
// (device id, version counters, last sync time) and the exported form of
// the per-user symmetric key. The decrypted private profile is held in an
// in-memory map only and is never persisted in plaintext.
//
// Sync metadata is created lazily on first access, which is also where the
// installation's stable device id is generated. Purge removes all four
// namespaces for a user plus the in-memory plaintext; it is the only way
// metadata is ever deleted.
package store
