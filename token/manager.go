// Package token issues and validates the stateless signed identity tokens
// carried as bearer credentials. A token is a pure function of the signing
// secret: verification needs no server-side state, and there is no
// revocation beyond expiry.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen is the minimum HS256 secret length accepted at
// construction. Shorter secrets fail fast instead of weakening every
// token the process would ever sign.
const MinSecretLen = 32

// ErrInvalid is returned by Validate for any unusable token: bad
// signature, malformed structure, or lapsed expiry. Callers get no finer
// distinction.
var ErrInvalid = errors.New("invalid token")

// Config holds the process-wide signing parameters, loaded once at
// startup and never rotated at runtime.
type Config struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string
	Leeway   time.Duration
}

// Claims is the self-contained payload of an issued token. Subject
// carries the username, UserID the numeric account id, and ID an opaque
// per-token identifier.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single HS256 secret.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Lifetime <= 0 {
		return nil, errors.New("token lifetime must be > 0")
	}
	if len(cfg.Secret) < MinSecretLen {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLen)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a token for the given subject. The expiry is issue time
// plus the configured lifetime.
func (m *Manager) Issue(username string, userID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Lifetime)),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Validate verifies signature and time bounds and returns the claims.
// Every failure mode collapses into [ErrInvalid].
func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

// Lifetime reports the configured token lifetime.
func (m *Manager) Lifetime() time.Duration {
	return m.config.Lifetime
}
