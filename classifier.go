package authgate

import (
	"context"
	"crypto/subtle"
	"strings"
)

// Classifier decides the outcome of a login attempt. The engine passes the
// normalized email. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, cred Credential) Outcome
}

// ClassifierFunc adapts a plain function to [Classifier].
type ClassifierFunc func(ctx context.Context, cred Credential) Outcome

func (f ClassifierFunc) Classify(ctx context.Context, cred Credential) Outcome {
	return f(ctx, cred)
}

const (
	// DemoPassword is the only password DemoClassifier accepts.
	DemoPassword = "Password123!"
	// DemoRateLimitRetryAfter is the retry hint for the rate-limited address.
	DemoRateLimitRetryAfter = 30
)

// Reserved addresses of DemoClassifier. Each one triggers its outcome only
// together with DemoPassword.
const (
	DemoEmailNetworkError = "network@demo.dev"
	DemoEmailServerError  = "server@demo.dev"
	DemoEmailRateLimited  = "rate@demo.dev"
	DemoEmailLocked       = "locked@demo.dev"
	DemoEmailTwoFA        = "2fa@demo.dev"
)

// DemoClassifier simulates an identity backend. With the accepted password
// the reserved addresses map to their simulated outcome and any other
// address succeeds; every other attempt is INVALID_CREDENTIALS.
type DemoClassifier struct {
	// Password overrides DemoPassword when set.
	Password string
}

func (c DemoClassifier) Classify(_ context.Context, cred Credential) Outcome {
	accepted := c.Password
	if accepted == "" {
		accepted = DemoPassword
	}
	if subtle.ConstantTimeCompare([]byte(cred.Password), []byte(accepted)) != 1 {
		return Fail(KindInvalidCredentials)
	}

	switch NormalizeEmail(cred.Email) {
	case DemoEmailNetworkError:
		return Fail(KindNetworkError)
	case DemoEmailServerError:
		return Fail(KindServerError)
	case DemoEmailRateLimited:
		return FailRateLimited(DemoRateLimitRetryAfter)
	case DemoEmailLocked:
		return Fail(KindAccountLocked)
	case DemoEmailTwoFA:
		return RequireTwoFA()
	default:
		return Succeed()
	}
}

// NormalizeEmail trims surrounding whitespace and lower-cases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
