package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	authcore "github.com/medisync/authcore"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the identity attached by [Authenticate],
// or (nil, false) for an anonymous request.
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// ErrorResolver is consulted when a bearer token is present but fails
// validation. It may write a response; the chain continues regardless,
// so downstream guards decide whether anonymity is acceptable.
type ErrorResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorResolverFunc adapts a function to [ErrorResolver].
type ErrorResolverFunc func(w http.ResponseWriter, r *http.Request, err error)

func (f ErrorResolverFunc) Resolve(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}

// Authenticate resolves the Authorization bearer token, when present,
// and attaches the result to the request context. Requests without a
// token, and requests already carrying an identity, pass through
// untouched. Validation failures are handed to resolver (which may be
// nil): a resolver that writes a response ends the request there; one
// that stays silent lets the request continue anonymously, leaving
// rejection to [Guard].
func Authenticate(engine *authcore.Engine, resolver ErrorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, already := AuthResultFromContext(r.Context()); already {
				next.ServeHTTP(w, r)
				return
			}

			ctx := authcore.WithClientIP(r.Context(), clientIP(r))

			res, err := engine.Authenticate(ctx, token)
			if err != nil {
				if resolver != nil {
					tracked := &trackedWriter{ResponseWriter: w}
					resolver.Resolve(tracked, r, err)
					if tracked.wrote {
						return
					}
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// trackedWriter records whether the resolver committed a response, so
// the chain is not run into an already-answered request.
type trackedWriter struct {
	http.ResponseWriter
	wrote bool
}

func (t *trackedWriter) WriteHeader(status int) {
	t.wrote = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *trackedWriter) Write(b []byte) (int, error) {
	t.wrote = true
	return t.ResponseWriter.Write(b)
}

// ClientIP attaches the caller's IP to the request context so the engine
// can run its per-IP admission windows. Honors X-Forwarded-For when set
// by a trusted proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authcore.WithClientIP(r.Context(), clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
