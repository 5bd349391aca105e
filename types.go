package authgate

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/rs/zerolog"
)

// StatusTwoFARequired is the LoginResult.Status of a login that is waiting
// on a one-time code.
const StatusTwoFARequired = "2FA_REQUIRED"

// Credential is one login attempt. It is consumed by Login and never stored.
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// User identifies the authenticated principal in a successful result.
type User struct {
	Email string `json:"email"`
}

// LoginResult is either a completed login (Token and User set) or a pending
// 2FA handshake (Status == StatusTwoFARequired and TempToken set).
type LoginResult struct {
	Token     string `json:"token,omitempty"`
	User      *User  `json:"user,omitempty"`
	Status    string `json:"status,omitempty"`
	TempToken string `json:"tempToken,omitempty"`
}

// TwoFARequired reports whether the login is waiting on VerifyTwoFA.
func (r *LoginResult) TwoFARequired() bool {
	return r != nil && r.Status == StatusTwoFARequired
}

// ResendResult acknowledges a resend.
type ResendResult struct {
	OK bool `json:"ok"`
}

// ChallengeStatus describes a pending challenge without revealing its code.
type ChallengeStatus struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
	Resends   int       `json:"resends"`
}

// OutcomeClass is the coarse result of classifying a credential.
type OutcomeClass uint8

const (
	OutcomeSuccess OutcomeClass = iota
	OutcomeTwoFARequired
	OutcomeFailure
)

func (c OutcomeClass) String() string {
	switch c {
	case OutcomeSuccess:
		return "success"
	case OutcomeTwoFARequired:
		return "2fa_required"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is what a Classifier decides for a credential. Kind is set only
// for OutcomeFailure; RetryAfterSec only for a KindRateLimit failure.
type Outcome struct {
	Class         OutcomeClass
	Kind          ErrorKind
	RetryAfterSec int
}

// Succeed returns the Success outcome.
func Succeed() Outcome {
	return Outcome{Class: OutcomeSuccess}
}

// RequireTwoFA returns the TwoFARequired outcome.
func RequireTwoFA() Outcome {
	return Outcome{Class: OutcomeTwoFARequired}
}

// Fail returns a Failure outcome of the given kind.
func Fail(kind ErrorKind) Outcome {
	return Outcome{Class: OutcomeFailure, Kind: kind}
}

// FailRateLimited returns a RATE_LIMIT failure carrying a retry hint.
func FailRateLimited(retryAfterSec int) Outcome {
	return Outcome{Class: OutcomeFailure, Kind: KindRateLimit, RetryAfterSec: retryAfterSec}
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZerologSink is an [AuditSink] that logs events through zerolog.
type ZerologSink = internalaudit.ZerologSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink creates a [ZerologSink] writing through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}
