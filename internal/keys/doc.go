// Package keys manages the per-user symmetric encryption key.
//
// A 256-bit AES key is generated on first use and persisted in the local
// store under a user-scoped record. The key never leaves the device except
// through an explicit, user-initiated backup export.
//
// # Backup Envelope
//
// ExportForBackup wraps the key with AES-256-GCM under a key derived from a
// user passphrase with argon2id. The envelope is
//
//	"PSKB1" ‖ salt(16) ‖ nonce(12) ‖ ciphertext
//
// so exported key material is never plaintext, even in transit between
// devices.
//
// # Failure Semantics
//
// A missing key record creates a fresh key; a corrupt or unreadable record
// yields ErrKeyUnavailable. Callers must treat ErrKeyUnavailable as "cannot
// decrypt existing private data", not as "no private data exists".
package keys
