package authgate

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/jwt"
)

// IssueRequest describes the principal a session token is minted for.
type IssueRequest struct {
	Email    string
	Remember bool
}

// TokenIssuer mints the session token returned by a completed login.
type TokenIssuer interface {
	Issue(ctx context.Context, req IssueRequest) (string, error)
}

// TokenIssuerFunc adapts a function to [TokenIssuer].
type TokenIssuerFunc func(ctx context.Context, req IssueRequest) (string, error)

func (f TokenIssuerFunc) Issue(ctx context.Context, req IssueRequest) (string, error) {
	return f(ctx, req)
}

// OpaqueIssuer returns Bytes random bytes, hex-encoded. The token carries no
// claims; Bytes defaults to 32 and may not be lower.
type OpaqueIssuer struct {
	Bytes int
}

func (o OpaqueIssuer) Issue(context.Context, IssueRequest) (string, error) {
	size := o.Bytes
	if size == 0 {
		size = internal.SessionTokenSize
	}
	if size < internal.SessionTokenSize {
		return "", errors.New("opaque session token below 32 bytes")
	}
	return internal.NewHexToken(size)
}

// JWTIssuer signs a session JWT whose subject is the authenticated email.
type JWTIssuer struct {
	manager *jwt.Manager
}

// NewJWTIssuer validates cfg and returns an issuer backed by a [jwt.Manager].
func NewJWTIssuer(cfg jwt.Config) (*JWTIssuer, error) {
	m, err := jwt.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &JWTIssuer{manager: m}, nil
}

func (j *JWTIssuer) Issue(_ context.Context, req IssueRequest) (string, error) {
	return j.manager.CreateSession(req.Email, req.Remember)
}

// Manager exposes the underlying manager for token verification.
func (j *JWTIssuer) Manager() *jwt.Manager {
	return j.manager
}

// JWTManager returns the manager of the engine's issuer when it signs JWTs,
// so HTTP guards can verify the tokens the engine hands out.
func (e *Engine) JWTManager() (*jwt.Manager, bool) {
	if e == nil {
		return nil, false
	}
	issuer, ok := e.issuer.(*JWTIssuer)
	if !ok || issuer == nil {
		return nil, false
	}
	return issuer.manager, true
}
