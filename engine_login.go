package authgate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authgate/internal/stores"
)

// Login classifies cred after the configured delay. It returns either a
// session token, a pending 2FA result carrying a temp token, or an
// *AuthError. A context cancelled during the delay yields NETWORK_ERROR.
func (e *Engine) Login(ctx context.Context, cred Credential) (*LoginResult, error) {
	start := time.Now()
	defer e.observeSince(MetricLoginLatency, start)
	if ctx == nil {
		ctx = context.Background()
	}

	email := NormalizeEmail(cred.Email)
	if err := sleepCtx(ctx, e.delay.Delay()); err != nil {
		mapped := ErrNetwork.withCause(err)
		e.metricInc(MetricLoginAborted)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, mapped, func() map[string]string {
			return map[string]string{
				"reason": "aborted",
			}
		})
		return nil, mapped
	}

	outcome := e.classifier.Classify(ctx, Credential{
		Email:    email,
		Password: cred.Password,
		Remember: cred.Remember,
	})
	cred.Password = ""

	switch outcome.Class {
	case OutcomeSuccess:
		return e.completeLogin(ctx, email, cred.Remember)
	case OutcomeTwoFARequired:
		return e.beginTwoFA(ctx, email, cred.Remember)
	case OutcomeFailure:
		return e.failLogin(ctx, email, outcome)
	default:
		mapped := ErrServer.withCause(fmt.Errorf("unknown outcome class %d", outcome.Class))
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, mapped, func() map[string]string {
			return map[string]string{
				"reason": "classifier_outcome",
			}
		})
		return nil, mapped
	}
}

func (e *Engine) failLogin(ctx context.Context, email string, outcome Outcome) (*LoginResult, error) {
	var mapped *AuthError
	switch outcome.Kind {
	case KindRateLimit:
		mapped = ErrRateLimited.withRetryAfter(outcome.RetryAfterSec)
		e.metricInc(MetricLoginRateLimited)
	default:
		mapped = errorForKind(outcome.Kind).clone()
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, email, mapped, func() map[string]string {
		meta := map[string]string{
			"reason": "classified",
		}
		if mapped.RetryAfterSec > 0 {
			meta["retry_after_sec"] = strconv.Itoa(mapped.RetryAfterSec)
		}
		return meta
	})
	return nil, mapped
}

func (e *Engine) completeLogin(ctx context.Context, email string, remember bool) (*LoginResult, error) {
	token, err := e.issuer.Issue(ctx, IssueRequest{Email: email, Remember: remember})
	if err != nil {
		mapped := ErrServer.withCause(err)
		e.metricInc(MetricIssueFailure)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, mapped, func() map[string]string {
			return map[string]string{
				"reason": "issue_token_failed",
			}
		})
		return nil, mapped
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, email, nil, func() map[string]string {
		return map[string]string{
			"remember": strconv.FormatBool(remember),
		}
	})
	return &LoginResult{
		Token: token,
		User:  &User{Email: email},
	}, nil
}

func (e *Engine) beginTwoFA(ctx context.Context, email string, remember bool) (*LoginResult, error) {
	tempToken, err := e.codes.NewTempToken()
	if err != nil {
		return nil, e.failBeginTwoFA(ctx, email, "temp_token_generation", err)
	}
	code, err := e.codes.NewCode()
	if err != nil {
		return nil, e.failBeginTwoFA(ctx, email, "code_generation", err)
	}

	expiresAt := e.clock.Now().Add(e.config.Challenge.TTL)
	record := &stores.Challenge{
		TempToken: tempToken,
		Code:      code,
		Email:     email,
		Slot:      e.slotFor(email, tempToken),
		ExpiresAt: expiresAt.UnixMilli(),
		Remember:  remember,
	}
	if err := e.store.Put(ctx, record, e.config.Challenge.Retention); err != nil {
		e.metricInc(MetricStoreFailure)
		return nil, e.failBeginTwoFA(ctx, email, "challenge_save_failed", err)
	}

	e.deliverCode(ctx, CodeDelivery{
		Email:     email,
		TempToken: tempToken,
		Code:      code,
		ExpiresAt: record.ExpiresTime(),
	})

	e.metricInc(MetricTwoFARequired)
	e.emitAudit(ctx, auditEventTwoFARequired, true, email, nil, func() map[string]string {
		return map[string]string{
			"scope": e.config.Challenge.Scope.String(),
		}
	})
	return &LoginResult{
		Status:    StatusTwoFARequired,
		TempToken: tempToken,
	}, nil
}

func (e *Engine) failBeginTwoFA(ctx context.Context, email, reason string, cause error) *AuthError {
	mapped := ErrServer.withCause(cause)
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, email, mapped, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return mapped
}

// deliverCode is best effort: the challenge is already stored and the
// caller can ask for a resend.
func (e *Engine) deliverCode(ctx context.Context, d CodeDelivery) {
	if err := e.sender.SendCode(ctx, d); err != nil {
		e.metricInc(MetricCodeDeliveryFailure)
		e.logger.Warn().
			Err(err).
			Str("email", d.Email).
			Bool("resend", d.Resend).
			Msg("authgate: 2fa code delivery failed")
	}
}
