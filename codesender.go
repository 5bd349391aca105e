package authgate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CodeDelivery is what a CodeSender is asked to deliver.
type CodeDelivery struct {
	Email     string
	TempToken string
	Code      string
	ExpiresAt time.Time
	Resend    bool
}

// CodeSender delivers one-time codes out of band. Delivery is best effort:
// a failure is logged and the handshake continues.
type CodeSender interface {
	SendCode(ctx context.Context, d CodeDelivery) error
}

// CodeSenderFunc adapts a function to [CodeSender].
type CodeSenderFunc func(ctx context.Context, d CodeDelivery) error

func (f CodeSenderFunc) SendCode(ctx context.Context, d CodeDelivery) error {
	return f(ctx, d)
}

// LogCodeSender writes the code to a logger instead of sending it. Only for
// demos and local development: it prints the secret.
type LogCodeSender struct {
	Logger zerolog.Logger
}

func (s LogCodeSender) SendCode(_ context.Context, d CodeDelivery) error {
	s.Logger.Info().
		Str("email", d.Email).
		Str("code", d.Code).
		Time("expires_at", d.ExpiresAt).
		Bool("resend", d.Resend).
		Msg("2FA code (for demo)")
	return nil
}

type discardCodeSender struct{}

func (discardCodeSender) SendCode(context.Context, CodeDelivery) error { return nil }
