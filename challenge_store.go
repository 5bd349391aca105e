package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authgate/internal/stores"
)

// challengeStore is implemented by the in-memory and Redis backends. Every
// method is one atomic critical section.
type challengeStore interface {
	Put(ctx context.Context, record *stores.Challenge, retention time.Duration) error
	Get(ctx context.Context, tempToken string) (*stores.Challenge, error)
	Verify(ctx context.Context, tempToken, code string, now time.Time) (*stores.Challenge, error)
	Refresh(ctx context.Context, tempToken, code string, expiresAt time.Time, retention time.Duration) (*stores.Challenge, error)
}

const globalSlot = "global"

func (e *Engine) slotFor(email, tempToken string) string {
	switch e.config.Challenge.Scope {
	case ChallengeScopePerUser:
		return "u:" + email
	case ChallengeScopePerToken:
		return "t:" + tempToken
	default:
		return globalSlot
	}
}

func mapChallengeStoreError(err error) *AuthError {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		return ErrSessionExpired.clone()
	case errors.Is(err, stores.ErrChallengeExpired):
		return ErrCodeExpired.clone()
	case errors.Is(err, stores.ErrChallengeCodeMismatch):
		return ErrInvalid2FACode.clone()
	default:
		return ErrServer.withCause(err)
	}
}
