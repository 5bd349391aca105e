package authgate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/authgate/internal/stores"
)

// VerifyTwoFA completes a pending login. The expiry check, the code
// comparison and the clearing of the challenge happen in one store
// operation:
//
//   - unknown or cleared temp token: CODE_EXPIRED "Session expired"
//   - challenge past its window: CODE_EXPIRED "Code expired", challenge cleared
//   - wrong code: INVALID_2FA_CODE, challenge kept
//   - match: challenge cleared, token issued for the originating email
func (e *Engine) VerifyTwoFA(ctx context.Context, tempToken, code string) (*LoginResult, error) {
	start := time.Now()
	defer e.observeSince(MetricTwoFALatency, start)
	if ctx == nil {
		ctx = context.Background()
	}

	if tempToken == "" {
		return nil, e.failVerify(ctx, stores.ErrChallengeNotFound)
	}

	record, err := e.store.Verify(ctx, tempToken, code, e.clock.Now())
	if err != nil {
		return nil, e.failVerify(ctx, err)
	}

	token, err := e.issuer.Issue(ctx, IssueRequest{Email: record.Email, Remember: record.Remember})
	if err != nil {
		mapped := ErrServer.withCause(err)
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTwoFAFailure, false, record.Email, mapped, func() map[string]string {
			return map[string]string{
				"reason": "issue_token_failed",
			}
		})
		return nil, mapped
	}

	e.metricInc(MetricTwoFASuccess)
	e.emitAudit(ctx, auditEventTwoFAVerified, true, record.Email, nil, func() map[string]string {
		return map[string]string{
			"remember": strconv.FormatBool(record.Remember),
			"resends":  strconv.Itoa(int(record.Resends)),
		}
	})
	return &LoginResult{
		Token: token,
		User:  &User{Email: record.Email},
	}, nil
}

func (e *Engine) failVerify(ctx context.Context, err error) *AuthError {
	mapped := mapChallengeStoreError(err)

	switch {
	case errors.Is(err, stores.ErrChallengeExpired):
		e.metricInc(MetricTwoFACodeExpired)
		e.emitAudit(ctx, auditEventTwoFAExpired, false, "", mapped, nil)
		return mapped
	case errors.Is(err, stores.ErrChallengeCodeMismatch):
		e.metricInc(MetricTwoFAInvalidCode)
	case errors.Is(err, stores.ErrChallengeNotFound):
		e.metricInc(MetricTwoFASessionExpired)
	default:
		e.metricInc(MetricStoreFailure)
		e.logger.Error().Err(err).Msg("authgate: 2fa verify failed")
	}

	e.emitAudit(ctx, auditEventTwoFAFailure, false, "", mapped, nil)
	return mapped
}

// ResendTwoFA issues a new code for a pending challenge and restarts its
// validity window. The temp token is unchanged. A challenge that has already
// expired, but was not yet cleared by a verify, is revived.
func (e *Engine) ResendTwoFA(ctx context.Context, tempToken string) (*ResendResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tempToken == "" {
		return nil, e.failResend(ctx, stores.ErrChallengeNotFound)
	}

	code, err := e.codes.NewCode()
	if err != nil {
		return nil, e.failResend(ctx, err)
	}

	expiresAt := e.clock.Now().Add(e.config.Challenge.TTL)
	record, err := e.store.Refresh(ctx, tempToken, code, expiresAt, e.config.Challenge.Retention)
	if err != nil {
		return nil, e.failResend(ctx, err)
	}

	e.deliverCode(ctx, CodeDelivery{
		Email:     record.Email,
		TempToken: tempToken,
		Code:      code,
		ExpiresAt: record.ExpiresTime(),
		Resend:    true,
	})

	e.metricInc(MetricTwoFAResent)
	e.emitAudit(ctx, auditEventTwoFAResent, true, record.Email, nil, func() map[string]string {
		return map[string]string{
			"resends": strconv.Itoa(int(record.Resends)),
		}
	})
	return &ResendResult{OK: true}, nil
}

func (e *Engine) failResend(ctx context.Context, err error) *AuthError {
	mapped := mapChallengeStoreError(err)
	if errors.Is(err, stores.ErrChallengeNotFound) {
		e.metricInc(MetricTwoFASessionExpired)
	} else {
		e.metricInc(MetricStoreFailure)
		e.logger.Error().Err(err).Msg("authgate: 2fa resend failed")
	}

	e.metricInc(MetricTwoFAResendFailure)
	e.emitAudit(ctx, auditEventTwoFAResendFailure, false, "", mapped, nil)
	return mapped
}

// TwoFAStatus reports the expiry of a pending challenge without touching it.
// The code is never revealed. An unknown temp token is CODE_EXPIRED
// "Session expired".
func (e *Engine) TwoFAStatus(ctx context.Context, tempToken string) (*ChallengeStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tempToken == "" {
		return nil, ErrSessionExpired.clone()
	}

	record, err := e.store.Get(ctx, tempToken)
	if err != nil {
		if !errors.Is(err, stores.ErrChallengeNotFound) {
			e.metricInc(MetricStoreFailure)
		}
		return nil, mapChallengeStoreError(err)
	}

	return &ChallengeStatus{
		ExpiresAt: record.ExpiresTime().UTC(),
		Expired:   record.Expired(e.clock.Now()),
		Resends:   int(record.Resends),
	}, nil
}
