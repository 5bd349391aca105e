package httpapi

import (
	"net/http"

	"github.com/MrEthical07/authgate"
)

// StatusFor maps an error kind to its HTTP status. Unknown kinds are 500.
func StatusFor(kind authgate.ErrorKind) int {
	switch kind {
	case authgate.KindInvalidCredentials:
		return http.StatusUnauthorized
	case authgate.KindAccountLocked:
		return http.StatusLocked
	case authgate.KindRateLimit:
		return http.StatusTooManyRequests
	case authgate.KindServerError:
		return http.StatusInternalServerError
	case authgate.KindNetworkError:
		return http.StatusServiceUnavailable
	case authgate.KindInvalid2FACode:
		return http.StatusUnauthorized
	case authgate.KindCodeExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
