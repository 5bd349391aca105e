// Package httpapi exposes an authgate Engine over JSON/HTTP.
//
// Routes:
//
//	POST /login        {email, password, remember?}
//	POST /2fa/verify   {tempToken, code}
//	POST /2fa/resend   {tempToken}
//	GET  /2fa/status?tempToken=...
//
// Engine errors are written as {code, message, retryAfterSec?} with the
// status chosen by [StatusFor]. A rate-limited login also sets Retry-After.
package httpapi
