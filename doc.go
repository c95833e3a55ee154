// Package authcore is the authentication and abuse-prevention core of a
// patient-facing clinical platform: local credential logins, federated
// (OAuth2) logins with identity-linking resolution, stateless signed
// session tokens, and a fixed-window rate limiter over a shared
// TTL-capable counter store.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (User, AuthResult, QuotaStatus). Rate-limit key layout
// and window bookkeeping live under internal/ and are never exported.
//
// Persistence is a collaborator, not a concern: callers supply an
// [IdentityStore] (user records) and a [ProfileStore] (companion patient
// profiles). Reference adapters ship under stores/. The shared counter
// store behind the rate limiter is the [counter.Store] capability; the
// Redis adapter is the production choice, the in-memory adapter covers
// tests and single-process deployments.
//
// # What this package must NOT do
//
//   - Expose raw counter keys, Redis clients, or store handles in its
//     public API.
//   - Hold server-side session state: a token, once issued, is verified by
//     signature and expiry alone.
//   - Enforce endpoint authorization. The engine derives an authority set
//     per user; route rules belong to the transport layer.
package authcore
