package authgate

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// DelayStrategy decides how long Login waits before classifying. Login
// never holds a lock or touches the store while it waits.
type DelayStrategy interface {
	Delay() time.Duration
}

// DelayFunc adapts a function to [DelayStrategy].
type DelayFunc func() time.Duration

func (f DelayFunc) Delay() time.Duration { return f() }

// JitterDelay waits Base plus a uniform draw from [MinJitter, MaxJitter].
type JitterDelay struct {
	Base      time.Duration
	MinJitter time.Duration
	MaxJitter time.Duration
}

// DefaultDelay mirrors the latency profile of a remote identity backend.
func DefaultDelay() JitterDelay {
	return JitterDelay{
		Base:      600 * time.Millisecond,
		MinJitter: 200 * time.Millisecond,
		MaxJitter: 600 * time.Millisecond,
	}
}

func (d JitterDelay) Delay() time.Duration {
	out := d.Base + d.MinJitter
	span := d.MaxJitter - d.MinJitter
	if span <= 0 {
		return out
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(span)+1))
	if err != nil {
		return out
	}
	return out + time.Duration(n.Int64())
}

// NoDelay resolves Login immediately.
type NoDelay struct{}

func (NoDelay) Delay() time.Duration { return 0 }

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
