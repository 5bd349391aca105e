package authgate

import (
	"errors"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. Every collaborator is optional; unset ones
// fall back to the reference behavior (DemoClassifier, jittered delay,
// crypto/rand codes, opaque tokens, in-memory store). A Builder can be
// used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	classifier Classifier
	delay      DelayStrategy
	clock      Clock
	codes      CodeGenerator
	issuer     TokenIssuer
	sender     CodeSender
	auditSink  AuditSink
	logger     *zerolog.Logger

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores challenges in Redis instead of process memory. The
// engine does not close the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithClassifier(c Classifier) *Builder {
	b.classifier = c
	return b
}

// WithDelay overrides Config.Latency. Use NoDelay{} in tests.
func (b *Builder) WithDelay(d DelayStrategy) *Builder {
	b.delay = d
	return b
}

func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithCodeGenerator(g CodeGenerator) *Builder {
	b.codes = g
	return b
}

// WithTokenIssuer overrides Config.Tokens.
func (b *Builder) WithTokenIssuer(i TokenIssuer) *Builder {
	b.issuer = i
	return b
}

func (b *Builder) WithCodeSender(s CodeSender) *Builder {
	b.sender = s
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

func (b *Builder) WithChallengeScope(scope ChallengeScope) *Builder {
	b.config.Challenge.Scope = scope
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		classifier: b.classifier,
		delay:      b.delay,
		clock:      b.clock,
		codes:      b.codes,
		issuer:     b.issuer,
		sender:     b.sender,
		logger:     zerolog.Nop(),
	}
	if b.logger != nil {
		engine.logger = *b.logger
	}

	if engine.classifier == nil {
		engine.classifier = DemoClassifier{}
	}
	if engine.delay == nil {
		if cfg.Latency.Enabled {
			engine.delay = JitterDelay{
				Base:      cfg.Latency.Base,
				MinJitter: cfg.Latency.MinJitter,
				MaxJitter: cfg.Latency.MaxJitter,
			}
		} else {
			engine.delay = NoDelay{}
		}
	}
	if engine.clock == nil {
		engine.clock = systemClock{}
	}
	if engine.codes == nil {
		engine.codes = RandomCodeGenerator{Digits: cfg.Challenge.CodeDigits}
	}
	if engine.sender == nil {
		engine.sender = discardCodeSender{}
	}

	// -------- TOKEN ISSUER --------
	if engine.issuer == nil {
		issuer, err := newConfiguredIssuer(cfg.Tokens, engine.clock)
		if err != nil {
			return nil, err
		}
		engine.issuer = issuer
	}

	// -------- CHALLENGE STORE --------
	if b.redis != nil {
		engine.store = stores.NewRedisChallengeStore(b.redis, cfg.Store.RedisPrefix)
	} else {
		mem := stores.NewMemoryChallengeStore()
		engine.store = mem
		engine.closers = append(engine.closers, mem.Close)
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

func newConfiguredIssuer(cfg TokensConfig, clock Clock) (TokenIssuer, error) {
	switch cfg.Type {
	case TokenJWT:
		return NewJWTIssuer(jwt.Config{
			SessionTTL:    cfg.JWT.SessionTTL,
			RememberTTL:   cfg.JWT.RememberTTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			KeyID:         cfg.JWT.KeyID,
			Now:           clock.Now,
		})
	default:
		return OpaqueIssuer{Bytes: cfg.OpaqueBytes}, nil
	}
}
