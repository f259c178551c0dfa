package errors

import "errors"

// Transport errors indicate network or remote-service failures.
var (
	// ErrCircuitOpen indicates the circuit breaker for an endpoint is open
	// and the call was rejected without touching the network.
	ErrCircuitOpen = errors.New("circuit breaker is open for this endpoint")

	// ErrTimeout indicates the remote call exceeded its deadline.
	ErrTimeout = errors.New("remote call timed out")

	// ErrRetriesExhausted indicates all retry attempts for a call failed.
	ErrRetriesExhausted = errors.New("all retry attempts failed")
)

// Cryptographic errors indicate failures during key or cipher operations.
var (
	// ErrKeyUnavailable indicates the per-user symmetric key could not be
	// loaded. Callers must treat this as "cannot decrypt existing private
	// data", not as "no private data exists".
	ErrKeyUnavailable = errors.New("encryption key unavailable")

	// ErrKeyNotFound indicates no key record exists for the user yet.
	ErrKeyNotFound = errors.New("encryption key not found")

	// ErrDecryptionFailed indicates the authentication tag did not verify.
	// Tampered data, a wrong key, and a wrong nonce are deliberately
	// indistinguishable.
	ErrDecryptionFailed = errors.New("failed to decrypt data")

	// ErrInvalidKeyLength indicates the symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")

	// ErrInvalidBackup indicates a key backup envelope is malformed.
	ErrInvalidBackup = errors.New("invalid key backup envelope")
)

// Profile errors indicate issues with profile state or access.
var (
	// ErrProfileNotFound indicates no profile exists for the user.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNotAuthenticated indicates no bearer credential is available.
	ErrNotAuthenticated = errors.New("user is not authenticated")

	// ErrConflict indicates the remote already holds the resource (409).
	// Recovered internally by fetching the existing resource.
	ErrConflict = errors.New("profile already exists")

	// ErrLocalOnly indicates the operation would transmit private data
	// while the profile is configured for local-only storage.
	ErrLocalOnly = errors.New("private profile is restricted to local storage")
)

// Input and lifecycle errors.
var (
	// ErrValidation indicates a malformed patch or option set, rejected
	// before any network call.
	ErrValidation = errors.New("invalid input")

	// ErrStoreClosed indicates the local store has been closed.
	ErrStoreClosed = errors.New("local store is closed")

	// ErrFacadeClosed indicates the profile facade has been closed.
	ErrFacadeClosed = errors.New("profile facade is closed")
)
