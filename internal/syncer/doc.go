// Package syncer reconciles profile state between the local cache and the
// remote profile service.
//
// A sync runs per user and per direction (pull, push, bidirectional). The
// public half always reconciles fully, including any remote push, before
// the private half is attempted: private-half decisions (notably skipping
// remote contact entirely under LocalStorageOnly) depend on the
// just-reconciled public privacy settings.
//
// # Version Rules
//
// Every successful write, local or remote, strictly increases the affected
// half's version counter. Bidirectional reconciliation applies a remote
// value only when its version is strictly newer; on equal versions the
// local value wins and is pushed with a bumped version. Remote-absent
// counts as "local wins". A push on a LocalStorageOnly profile still
// commits the private document locally with a bumped version; only the
// network is skipped.
//
// # Private Half
//
// The remote only ever holds the encrypted blob. The engine decrypts it
// for comparison and re-encrypts under a fresh nonce before any push. A
// remote blob that fails to decrypt is treated as unusable: the local
// value is kept, the failure is recorded in Result.Errors, and nothing is
// pushed over the remote copy.
package syncer
