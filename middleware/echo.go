package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	authcore "github.com/medisync/authcore"
)

// EchoAuthenticate is [Authenticate] for Echo. The identity lands in the
// request context, so [AuthResultFromContext] works inside Echo handlers
// too.
func EchoAuthenticate(engine *authcore.Engine, resolver ErrorResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				return next(c)
			}
			if _, already := AuthResultFromContext(r.Context()); already {
				return next(c)
			}

			ctx := authcore.WithClientIP(r.Context(), c.RealIP())

			res, err := engine.Authenticate(ctx, token)
			if err != nil {
				if resolver != nil {
					resolver.Resolve(c.Response(), r, err)
					if c.Response().Committed {
						return nil
					}
				}
				c.SetRequest(r.WithContext(ctx))
				return next(c)
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			c.SetRequest(r.WithContext(ctx))
			return next(c)
		}
	}
}

// EchoClientIP attaches Echo's resolved client IP to the request context.
func EchoClientIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		c.SetRequest(r.WithContext(authcore.WithClientIP(r.Context(), c.RealIP())))
		return next(c)
	}
}

// EchoGuard is [Guard] for Echo.
func EchoGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := AuthResultFromContext(c.Request().Context()); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}
