package authgate

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventTwoFARequired      = "twofa_required"
	auditEventTwoFAVerified      = "twofa_verified"
	auditEventTwoFAFailure       = "twofa_failure"
	auditEventTwoFAExpired       = "twofa_expired"
	auditEventTwoFAResent        = "twofa_resent"
	auditEventTwoFAResendFailure = "twofa_resend_failure"
)

// AuditErrorCode is the error field of a failed audit event.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrServer             AuditErrorCode = "server_error"
	auditErrNetwork            AuditErrorCode = "network_error"
	auditErrInvalidCode        AuditErrorCode = "invalid_2fa_code"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrCodeExpired):
		return auditErrCodeExpired
	}

	kind, ok := KindOf(err)
	if !ok {
		return auditErrInternal
	}
	switch kind {
	case KindInvalidCredentials:
		return auditErrInvalidCredentials
	case KindAccountLocked:
		return auditErrAccountLocked
	case KindRateLimit:
		return auditErrRateLimited
	case KindServerError:
		return auditErrServer
	case KindNetworkError:
		return auditErrNetwork
	case KindInvalid2FACode:
		return auditErrInvalidCode
	case KindCodeExpired:
		return auditErrCodeExpired
	default:
		return auditErrInternal
	}
}
