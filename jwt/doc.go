// Package jwt signs and verifies the session tokens handed out after a
// completed login. The core never validates tokens after issuance; ParseSession
// exists for the collaborators that do.
package jwt
