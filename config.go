package authgate

import (
	"fmt"
	"time"
)

// Config holds every engine setting. Build validates it; the engine keeps
// its own copy and never mutates it.
type Config struct {
	Challenge ChallengeConfig
	Latency   LatencyConfig
	Tokens    TokensConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// ChallengeScope selects the slot a pending challenge occupies. A slot holds
// at most one challenge; a new login in the same slot replaces it.
type ChallengeScope int

const (
	// ChallengeScopeGlobal keeps one challenge for the whole engine.
	ChallengeScopeGlobal ChallengeScope = iota
	// ChallengeScopePerUser keeps one challenge per normalized email.
	ChallengeScopePerUser
	// ChallengeScopePerToken never replaces: every challenge has its own slot.
	ChallengeScopePerToken
)

func (s ChallengeScope) String() string {
	switch s {
	case ChallengeScopeGlobal:
		return "global"
	case ChallengeScopePerUser:
		return "per_user"
	case ChallengeScopePerToken:
		return "per_token"
	default:
		return "unknown"
	}
}

// ParseChallengeScope accepts the String form of a scope.
func ParseChallengeScope(s string) (ChallengeScope, error) {
	switch s {
	case "", "global":
		return ChallengeScopeGlobal, nil
	case "per_user":
		return ChallengeScopePerUser, nil
	case "per_token":
		return ChallengeScopePerToken, nil
	default:
		return 0, fmt.Errorf("%w: unknown challenge scope %q", ErrInvalidConfig, s)
	}
}

// ChallengeConfig controls 2FA challenges.
//
// TTL is the validity window of a code. Retention is how long the backend
// keeps the record: it must outlive TTL so that a late verify can report
// "Code expired" and a late resend can revive the challenge.
type ChallengeConfig struct {
	TTL        time.Duration
	Retention  time.Duration
	Scope      ChallengeScope
	CodeDigits int
}

// LatencyConfig shapes the default login delay. It is ignored when a
// DelayStrategy is passed to the builder.
type LatencyConfig struct {
	Enabled   bool
	Base      time.Duration
	MinJitter time.Duration
	MaxJitter time.Duration
}

// TokenType selects the default session token issuer.
type TokenType string

const (
	TokenOpaque TokenType = "opaque"
	TokenJWT    TokenType = "jwt"
)

// TokensConfig controls the default TokenIssuer. It is ignored when a
// TokenIssuer is passed to the builder.
type TokensConfig struct {
	Type        TokenType
	OpaqueBytes int
	JWT         JWTConfig
}

// JWTConfig configures JWT session tokens.
type JWTConfig struct {
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
}

// StoreConfig controls the challenge backend. Redis is used when a client
// is passed to the builder; otherwise challenges live in process.
type StoreConfig struct {
	RedisPrefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the settings of the reference handshake: a single
// global slot, 60 second codes and a 0.8-1.2s login delay.
func DefaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:        60 * time.Second,
			Retention:  10 * time.Minute,
			Scope:      ChallengeScopeGlobal,
			CodeDigits: 6,
		},
		Latency: LatencyConfig{
			Enabled:   true,
			Base:      600 * time.Millisecond,
			MinJitter: 200 * time.Millisecond,
			MaxJitter: 600 * time.Millisecond,
		},
		Tokens: TokensConfig{
			Type:        TokenOpaque,
			OpaqueBytes: 32,
			JWT: JWTConfig{
				SessionTTL:    time.Hour,
				RememberTTL:   30 * 24 * time.Hour,
				SigningMethod: "ed25519",
			},
		},
		Store: StoreConfig{
			RedisPrefix: "a2f",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Tokens.JWT.PrivateKey = cloneBytes(cfg.Tokens.JWT.PrivateKey)
	out.Tokens.JWT.PublicKey = cloneBytes(cfg.Tokens.JWT.PublicKey)
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

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	// Challenge
	if c.Challenge.TTL <= 0 {
		return invalidConfig("Challenge TTL must be > 0")
	}
	if c.Challenge.Retention < c.Challenge.TTL {
		return invalidConfig("Challenge Retention must be >= TTL")
	}
	switch c.Challenge.Scope {
	case ChallengeScopeGlobal, ChallengeScopePerUser, ChallengeScopePerToken:
	default:
		return invalidConfig("Challenge Scope is invalid")
	}
	if c.Challenge.CodeDigits < 6 || c.Challenge.CodeDigits > 10 {
		return invalidConfig("Challenge CodeDigits must be between 6 and 10")
	}

	// Latency
	if c.Latency.Enabled {
		if c.Latency.Base < 0 || c.Latency.MinJitter < 0 {
			return invalidConfig("Latency durations must be >= 0")
		}
		if c.Latency.MaxJitter < c.Latency.MinJitter {
			return invalidConfig("Latency MaxJitter must be >= MinJitter")
		}
	}

	// Tokens
	switch c.Tokens.Type {
	case TokenOpaque:
		if c.Tokens.OpaqueBytes < 32 {
			return invalidConfig("Tokens OpaqueBytes must be >= 32")
		}
	case TokenJWT:
		if c.Tokens.JWT.SessionTTL <= 0 {
			return invalidConfig("JWT SessionTTL must be > 0")
		}
		if c.Tokens.JWT.RememberTTL != 0 && c.Tokens.JWT.RememberTTL < c.Tokens.JWT.SessionTTL {
			return invalidConfig("JWT RememberTTL must be >= SessionTTL")
		}
		switch c.Tokens.JWT.SigningMethod {
		case "ed25519":
			if len(c.Tokens.JWT.PrivateKey) == 0 {
				return invalidConfig("ed25519 requires PrivateKey")
			}
		case "hs256":
			if len(c.Tokens.JWT.PrivateKey) < 32 {
				return invalidConfig("hs256 requires a PrivateKey of at least 32 bytes")
			}
		default:
			return invalidConfig("unsupported JWT signing method")
		}
	default:
		return invalidConfig("Tokens Type must be 'opaque' or 'jwt'")
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return invalidConfig("Store RedisPrefix must not be empty")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
