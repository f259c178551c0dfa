// Package crypto provides authenticated encryption for private profile
// documents.
//
// Documents are sealed with AES-256-GCM under a fresh random 96-bit nonce
// per call. The ciphertext and nonce are returned together as an
// EncryptedBlob and must always travel together: a ciphertext is only ever
// decryptable with the nonce and key it was produced with.
//
// # Security Considerations
//
// Nonces come from crypto/rand, never from content or an unpersisted
// counter, so re-encrypting the same document produces different output
// (non-deterministic encryption) and no two calls observably reuse a nonce
// for the same key.
//
// Decryption failures are reported uniformly as ErrDecryptionFailed.
// Tampered data, a wrong key and a wrong nonce are indistinguishable to
// avoid acting as a decryption oracle.
package crypto
