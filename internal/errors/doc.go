// Package errors provides typed error values for the profilesync engine.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Transport errors: network/remote failures (ErrCircuitOpen, ErrTimeout)
//   - Crypto errors: key and cipher failures (ErrKeyUnavailable, ErrDecryptionFailed)
//   - Profile errors: profile state issues (ErrProfileNotFound, ErrConflict)
//   - Input errors: rejected before any I/O (ErrValidation)
//
// # Propagation Policy
//
// Transport and crypto errors on read paths degrade gracefully: a public
// profile fetch failure is reported as "no profile", and a private profile
// decrypt failure leaves the public half usable. Errors on write paths are
// surfaced to the caller so the integrating application can retry or offer
// a profile reset.
//
// Crypto errors are never retried blindly: retrying with the same bad key
// or ciphertext cannot succeed.
//
// # Usage
//
// Return errors from internal packages:
//
//	if key == nil {
//	    return nil, errors.ErrKeyUnavailable
//	}
//
// Handle errors at the facade or CLI layer:
//
//	result, err := engine.Sync(ctx, opts)
//	if errors.Is(err, perrors.ErrCircuitOpen) {
//	    // Back off; the remote is struggling.
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("pulling private profile for %s: %w", userID, errors.ErrDecryptionFailed)
package errors
