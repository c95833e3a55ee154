package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medisync/authcore/counter"
	"github.com/medisync/authcore/internal/rate"
	"github.com/medisync/authcore/password"
	"github.com/medisync/authcore/token"
)

// Builder assembles an Engine. Instances are configured during
// initialization and consumed by a single Build call.
type Builder struct {
	config Config

	redis    redis.UniversalClient
	counters counter.Store

	users    IdentityStore
	profiles ProfileStore
	hasher   PasswordHasher
	sink     AuditSink
	logger   *zerolog.Logger

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration wholesale. The config is cloned;
// later mutations of cfg do not reach the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the rate-limit counters.
// Ignored when WithCounterStore is also called.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCounterStore sets an explicit counter store, overriding WithRedis.
// Use [counter.NewMemoryStore] for single-process deployments and tests.
func (b *Builder) WithCounterStore(store counter.Store) *Builder {
	b.counters = store
	return b
}

// WithIdentityStore sets the user-record collaborator. Required.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.users = store
	return b
}

// WithProfileStore sets the patient-profile collaborator. Optional;
// when absent, signup skips profile creation.
func (b *Builder) WithProfileStore(store ProfileStore) *Builder {
	b.profiles = store
	return b
}

// WithPasswordHasher overrides the default argon2id hasher.
func (b *Builder) WithPasswordHasher(hasher PasswordHasher) *Builder {
	b.hasher = hasher
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithLogger sets the engine's structured logger. Defaults to a no-op
// logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the collaborators, and
// returns a ready Engine. A builder can only be consumed once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("identity store required")
	}

	counters := b.counters
	if counters == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or counter store required")
		}
		counters = counter.NewRedisStore(b.redis)
	}

	hasher := b.hasher
	if hasher == nil {
		ph, err := password.NewArgon2(password.Defaults())
		if err != nil {
			return nil, err
		}
		hasher = ph
	}

	tokens, err := token.NewManager(token.Config{
		Secret:   cloneBytes(cfg.Token.SigningSecret),
		Lifetime: cfg.Token.Lifetime,
		Issuer:   cfg.Token.Issuer,
		Leeway:   cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config: cfg,
		logger: logger,
		tokens: tokens,
		users:  b.users,
		limiter: rate.New(counters, rate.Config{
			Login: rate.Policy{
				MaxAttempts: cfg.RateLimit.Login.MaxAttempts,
				Window:      cfg.RateLimit.Login.Window,
			},
			Signup: rate.Policy{
				MaxAttempts: cfg.RateLimit.Signup.MaxAttempts,
				Window:      cfg.RateLimit.Signup.Window,
			},
		}),
		resolver: &identityResolver{
			users:    b.users,
			profiles: b.profiles,
			hasher:   hasher,
		},
		audit:   newAuditDispatcher(cfg.Audit, b.sink),
		metrics: NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
