package authgate

import (
	"errors"
	"strconv"
)

// Severity grades how a notice should be presented.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Notice is a user-facing rendering of a handshake failure.
type Notice struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// UnexpectedNotice is returned for errors outside the closed set.
var UnexpectedNotice = Notice{Severity: SeverityError, Text: "Unexpected error."}

// NoticeFor maps err onto the notice a login form shows. Every ErrorKind has
// its own notice; anything else gets UnexpectedNotice.
func NoticeFor(err error) Notice {
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr == nil {
		return UnexpectedNotice
	}

	switch authErr.Code {
	case KindInvalidCredentials:
		return Notice{Severity: SeverityError, Text: "Invalid email or password."}
	case KindAccountLocked:
		return Notice{Severity: SeverityError, Text: "Your account is locked."}
	case KindRateLimit:
		if authErr.RetryAfterSec > 0 {
			return Notice{
				Severity: SeverityWarning,
				Text:     "Too many attempts. Try again in " + strconv.Itoa(authErr.RetryAfterSec) + "s",
			}
		}
		return Notice{Severity: SeverityWarning, Text: "Too many attempts. Try again later."}
	case KindServerError:
		return Notice{Severity: SeverityError, Text: "Server error. Try again later."}
	case KindNetworkError:
		return Notice{Severity: SeverityWarning, Text: "Network issue. Please check your connection."}
	case KindInvalid2FACode:
		return Notice{Severity: SeverityError, Text: "Invalid 2FA code."}
	case KindCodeExpired:
		return Notice{Severity: SeverityWarning, Text: "Your 2FA code has expired. Please request a new one."}
	default:
		return UnexpectedNotice
	}
}
