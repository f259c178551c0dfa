// Package profile defines the profile documents synchronized by the engine.
//
// A user profile has two halves with independent version counters:
//
//   - PublicProfile: non-sensitive preferences, privacy settings and usage
//     stats. Synced unencrypted.
//   - PrivateProfile: sensitive personal and spiritual attributes plus
//     engagement counters. Exists in plaintext only in memory; it leaves
//     the device exclusively as an AES-GCM EncryptedBlob.
//
// Both halves are mutated only through the sync engine and facade, which
// own the version counters: every successful write strictly increases the
// affected half's version.
//
// # Patches
//
// Callers update profiles with free-form patches (map[string]any) that are
// deep-merged into the current document. Nested objects merge recursively;
// scalars and arrays replace. Reserved fields (version counters, identity,
// timestamps) cannot be set by a patch and are rejected with ErrValidation
// before any network call.
//
// # AI context projection
//
// BuildAIContext produces the privacy-filtered projection consumed by
// personalization features. With AllowPersonalization disabled it contains
// only language and input-method preferences; otherwise a sanitized subset
// of the private profile plus the top engagement signals. Raw cultural
// background and community fields are excluded unconditionally.
package profile
