// Package middleware guards HTTP routes with the session JWTs an authgate
// engine issues when configured with TokenJWT.
//
// [RequireSession] reads the Authorization bearer token, verifies it with a
// [SessionParser] (normally the manager behind authgate.JWTIssuer) and
// stores the claims for [ClaimsFromContext]. Opaque session tokens carry no
// claims and cannot be checked here.
package middleware
