// Package middleware exposes HTTP adapters for request authentication
// built on top of authcore.Engine.
//
// # Adapters
//
//   - [Authenticate] — resolves a bearer token when present and attaches
//     the result to the request context; never rejects on its own.
//   - [Guard] — rejects requests that did not authenticate.
//   - [EchoAuthenticate] / [EchoGuard] — the same pair for Echo handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the counter store (Engine handles I/O).
//   - Make authorization decisions beyond authenticated/anonymous.
package middleware
