// Package transport makes remote profile calls resilient.
//
// Client wraps every call with retry-with-backoff and a per-endpoint
// circuit breaker. Breaker state lives in a typed table keyed by
// (method, path-without-query), scoped to the client instance; it persists
// across calls and is fully reset on logout.
//
// # Policy
//
//  1. Priority calls clear any open circuit for their endpoint first.
//  2. An open circuit rejects non-priority calls immediately with
//     ErrCircuitOpen, without touching the network.
//  3. Success resets the endpoint's failure counter.
//  4. Network failures, timeouts, 5xx, 408 and 429 count as failures; five
//     consecutive failures open the circuit for a 10 second cool-down.
//     Between retries the client waits 2^attempt * baseDelay plus jitter.
//  5. Other 4xx statuses are answers, not failures: they neither trip the
//     breaker nor retry.
//
// This keeps a struggling profile service from being hammered by every
// interaction, while priority lets recovery flows bypass the breaker
// deliberately.
//
// ProfileAPI layers the service's typed routes (public profile CRUD and
// the encrypted blob pair) over the client. Known statuses unwrap to the
// engine's sentinel errors: 404 to ErrProfileNotFound, 409 to ErrConflict,
// 401/403 to ErrNotAuthenticated.
package transport
