package authgate

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes a handshake operation can
// report. Callers are expected to branch on it exhaustively.
type ErrorKind string

const (
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindAccountLocked      ErrorKind = "ACCOUNT_LOCKED"
	KindRateLimit          ErrorKind = "RATE_LIMIT"
	KindServerError        ErrorKind = "SERVER_ERROR"
	KindNetworkError       ErrorKind = "NETWORK_ERROR"
	KindInvalid2FACode     ErrorKind = "INVALID_2FA_CODE"
	KindCodeExpired        ErrorKind = "CODE_EXPIRED"
)

var errorKinds = []ErrorKind{
	KindInvalidCredentials,
	KindAccountLocked,
	KindRateLimit,
	KindServerError,
	KindNetworkError,
	KindInvalid2FACode,
	KindCodeExpired,
}

// ErrorKinds returns every kind, in declaration order.
func ErrorKinds() []ErrorKind {
	out := make([]ErrorKind, len(errorKinds))
	copy(out, errorKinds)
	return out
}

// Valid reports whether k belongs to the closed set.
func (k ErrorKind) Valid() bool {
	for _, known := range errorKinds {
		if k == known {
			return true
		}
	}
	return false
}

// AuthError is the only error type returned by Engine operations. Its JSON
// form is the wire contract: {code, message, retryAfterSec?}.
type AuthError struct {
	Code          ErrorKind `json:"code"`
	Message       string    `json:"message"`
	RetryAfterSec int       `json:"retryAfterSec,omitempty"`

	cause error
}

func (e *AuthError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *AuthError with the same kind and message, so the
// "Session expired" and "Code expired" flavours of CODE_EXPIRED stay
// distinguishable. RetryAfterSec and the wrapped cause are ignored.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// clone keeps the exported sentinels immutable: operations hand out copies.
func (e *AuthError) clone() *AuthError {
	out := *e
	return &out
}

func (e *AuthError) withCause(cause error) *AuthError {
	out := *e
	out.cause = cause
	return &out
}

func (e *AuthError) withRetryAfter(sec int) *AuthError {
	out := *e
	out.RetryAfterSec = sec
	return &out
}

var (
	// ErrInvalidCredentials reports a wrong email/password pair.
	ErrInvalidCredentials = &AuthError{Code: KindInvalidCredentials, Message: "Invalid email or password."}
	// ErrAccountLocked reports a locked account.
	ErrAccountLocked = &AuthError{Code: KindAccountLocked, Message: "Account locked. Contact support."}
	// ErrRateLimited reports throttling; the returned value carries RetryAfterSec.
	ErrRateLimited = &AuthError{Code: KindRateLimit, Message: "Too many attempts. Please wait before retrying."}
	// ErrServer reports a backend failure.
	ErrServer = &AuthError{Code: KindServerError, Message: "Server error. Please try again later."}
	// ErrNetwork reports a transport failure or an abandoned request.
	ErrNetwork = &AuthError{Code: KindNetworkError, Message: "Network issue. Check your connection and try again."}
	// ErrInvalid2FACode reports a wrong one-time code; the challenge stays usable.
	ErrInvalid2FACode = &AuthError{Code: KindInvalid2FACode, Message: "Invalid 2FA code"}
	// ErrSessionExpired reports an unknown or already cleared temp token.
	ErrSessionExpired = &AuthError{Code: KindCodeExpired, Message: "Session expired"}
	// ErrCodeExpired reports a challenge found past its validity window. The
	// challenge is cleared by the call that reports it.
	ErrCodeExpired = &AuthError{Code: KindCodeExpired, Message: "Code expired"}
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("authgate: invalid config")

// KindOf extracts the ErrorKind of err. It returns false when err does not
// wrap an *AuthError.
func KindOf(err error) (ErrorKind, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr != nil {
		return authErr.Code, true
	}
	return "", false
}

// AsAuthError returns the *AuthError wrapped by err, or nil.
func AsAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return nil
}

func errorForKind(kind ErrorKind) *AuthError {
	switch kind {
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindAccountLocked:
		return ErrAccountLocked
	case KindRateLimit:
		return ErrRateLimited
	case KindServerError:
		return ErrServer
	case KindNetworkError:
		return ErrNetwork
	case KindInvalid2FACode:
		return ErrInvalid2FACode
	case KindCodeExpired:
		return ErrCodeExpired
	default:
		return ErrServer.withCause(fmt.Errorf("unknown error kind %q", kind))
	}
}
