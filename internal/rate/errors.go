package rate

import "errors"

// ErrUnavailable wraps counter-store failures. The engine translates it
// to its public unavailable error and fails closed: an unreachable store
// must never read as an open window.
var ErrUnavailable = errors.New("counter store unavailable")
