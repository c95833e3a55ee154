package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/medisync/authcore/token"
)

// Config defines every tunable of the engine. Instances are cloned at
// Build time and treated as immutable afterwards.
type Config struct {
	Token     TokenConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the signing parameters for issued identity tokens.
// SigningSecret is process-wide, loaded once at startup; its minimum
// length is enforced by [Config.Validate].
type TokenConfig struct {
	SigningSecret []byte
	Lifetime      time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// LimitPolicy is one fixed-window budget.
type LimitPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitConfig holds the login and signup window policies. When
// EnableIPThrottle is set and the request context carries a client IP,
// admission additionally checks an IP-scoped window with the same
// policy.
type RateLimitConfig struct {
	Login            LimitPolicy
	Signup           LimitPolicy
	EnableIPThrottle bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the request path when
	// the buffer is saturated. Dropped counts are observable via
	// [Engine.AuditDropped].
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Lifetime: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			// 5 login tries per hour, 3 signup tries per day.
			Login:  LimitPolicy{MaxAttempts: 5, Window: time.Hour},
			Signup: LimitPolicy{MaxAttempts: 3, Window: 24 * time.Hour},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate fails fast on unusable configuration. Build refuses to
// construct an engine from a config that does not pass.
func (c *Config) Validate() error {
	if len(c.Token.SigningSecret) < token.MinSecretLen {
		return fmt.Errorf("token signing secret must be at least %d bytes", token.MinSecretLen)
	}
	if c.Token.Lifetime <= 0 {
		return errors.New("token lifetime must be > 0")
	}
	if c.Token.Leeway < 0 {
		return errors.New("token leeway must be >= 0")
	}

	if err := validatePolicy("login", c.RateLimit.Login); err != nil {
		return err
	}
	if err := validatePolicy("signup", c.RateLimit.Signup); err != nil {
		return err
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0 when audit is enabled")
	}

	return nil
}

func validatePolicy(name string, p LimitPolicy) error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%s max attempts must be > 0", name)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%s window must be > 0", name)
	}
	return nil
}
