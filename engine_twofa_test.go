package authgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/internal"
)

// sequenceCodes hands out fixed codes in order and random temp tokens.
type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceCodes) NewTempToken() (string, error) {
	return internal.NewHexToken(internal.TempTokenSize)
}

func (g *sequenceCodes) NewCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		return "", errors.New("sequence exhausted")
	}
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code, nil
}

func withCodes(codes ...string) func(*Builder) {
	return func(b *Builder) { b.WithCodeGenerator(&sequenceCodes{codes: codes}) }
}

func expectKindMessage(t *testing.T, err error, want *AuthError) {
	t.Helper()
	authErr := AsAuthError(err)
	if authErr == nil {
		t.Fatalf("expected %s %q, got %v", want.Code, want.Message, err)
	}
	if authErr.Code != want.Code || authErr.Message != want.Message {
		t.Fatalf("expected %s %q, got %s %q", want.Code, want.Message, authErr.Code, authErr.Message)
	}
}

func TestTwoFAVerifyCorrectCode(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)

		result, err := engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken))
		if err != nil {
			t.Fatalf("VerifyTwoFA failed: %v", err)
		}
		if !internal.IsHexToken(result.Token, internal.SessionTokenSize) {
			t.Fatalf("expected session token, got %q", result.Token)
		}
		if result.User == nil || result.User.Email != DemoEmailTwoFA {
			t.Fatalf("expected user %q, got %+v", DemoEmailTwoFA, result.User)
		}

		// Consumed: a replay sees no session.
		_, err = engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken))
		expectKindMessage(t, err, ErrSessionExpired)
	})
}

func TestTwoFAInvalidCodeKeepsChallenge(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)
		code := h.sender.code(t, tempToken)

		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		for i := 0; i < 3; i++ {
			_, err := engine.VerifyTwoFA(context.Background(), tempToken, wrong)
			expectKindMessage(t, err, ErrInvalid2FACode)
		}
		for _, malformed := range []string{"", "12345", "abcdef", code + "0"} {
			_, err := engine.VerifyTwoFA(context.Background(), tempToken, malformed)
			expectKindMessage(t, err, ErrInvalid2FACode)
		}

		if _, err := engine.VerifyTwoFA(context.Background(), tempToken, code); err != nil {
			t.Fatalf("correct code after mismatches failed: %v", err)
		}
		if got := engine.MetricsSnapshot().Counters[MetricTwoFAInvalidCode]; got != 7 {
			t.Fatalf("expected 7 invalid code metrics, got %d", got)
		}
	})
}

func TestTwoFAUnknownTempToken(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, _ *testHarness) {
		for _, token := range []string{"", "deadbeef", "00000000000000000000000000000000"} {
			_, err := engine.VerifyTwoFA(context.Background(), token, "123456")
			expectKindMessage(t, err, ErrSessionExpired)
			if !errors.Is(err, ErrSessionExpired) {
				t.Fatalf("expected errors.Is ErrSessionExpired, got %v", err)
			}
		}
	})
}

func TestTwoFAExpiryIsReportedOnce(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)
		code := h.sender.code(t, tempToken)

		h.clock.Advance(61 * time.Second)

		_, err := engine.VerifyTwoFA(context.Background(), tempToken, code)
		expectKindMessage(t, err, ErrCodeExpired)

		_, err = engine.VerifyTwoFA(context.Background(), tempToken, code)
		expectKindMessage(t, err, ErrSessionExpired)
	})
}

func TestTwoFAExpiryBoundaryIsInclusive(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)

		h.clock.Advance(60 * time.Second)
		if _, err := engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken)); err != nil {
			t.Fatalf("verify exactly at expiry failed: %v", err)
		}
	})
}

func TestTwoFAExpiredChallengeIgnoresCode(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)
		h.clock.Advance(2 * time.Minute)

		_, err := engine.VerifyTwoFA(context.Background(), tempToken, "not-a-code")
		expectKindMessage(t, err, ErrCodeExpired)
	})
}

func TestTwoFAResendReplacesCode(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)

		before, err := engine.TwoFAStatus(context.Background(), tempToken)
		if err != nil {
			t.Fatalf("TwoFAStatus failed: %v", err)
		}

		h.clock.Advance(30 * time.Second)
		result, err := engine.ResendTwoFA(context.Background(), tempToken)
		if err != nil || !result.OK {
			t.Fatalf("ResendTwoFA failed: %+v %v", result, err)
		}

		after, err := engine.TwoFAStatus(context.Background(), tempToken)
		if err != nil {
			t.Fatalf("TwoFAStatus failed: %v", err)
		}
		if got := after.ExpiresAt.Sub(before.ExpiresAt); got != 30*time.Second {
			t.Fatalf("expected expiry to move by 30s, moved %s", got)
		}
		if after.Resends != 1 {
			t.Fatalf("expected 1 resend, got %d", after.Resends)
		}

		_, err = engine.VerifyTwoFA(context.Background(), tempToken, "111111")
		expectKindMessage(t, err, ErrInvalid2FACode)

		if _, err := engine.VerifyTwoFA(context.Background(), tempToken, "222222"); err != nil {
			t.Fatalf("verify with resent code failed: %v", err)
		}
	}, withClassifier(alwaysTwoFA()), withCodes("111111", "222222"))
}

func TestTwoFAResendRevivesExpiredChallenge(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)

		h.clock.Advance(5 * time.Minute)
		status, err := engine.TwoFAStatus(context.Background(), tempToken)
		if err != nil || !status.Expired {
			t.Fatalf("expected expired status, got %+v %v", status, err)
		}

		if _, err := engine.ResendTwoFA(context.Background(), tempToken); err != nil {
			t.Fatalf("ResendTwoFA of expired challenge failed: %v", err)
		}
		status, err = engine.TwoFAStatus(context.Background(), tempToken)
		if err != nil || status.Expired {
			t.Fatalf("expected revived challenge, got %+v %v", status, err)
		}
		if _, err := engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken)); err != nil {
			t.Fatalf("verify after revival failed: %v", err)
		}
	})
}

func TestTwoFAResendAfterConsumeFails(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)
		if _, err := engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken)); err != nil {
			t.Fatalf("VerifyTwoFA failed: %v", err)
		}

		_, err := engine.ResendTwoFA(context.Background(), tempToken)
		expectKindMessage(t, err, ErrSessionExpired)

		_, err = engine.ResendTwoFA(context.Background(), "")
		expectKindMessage(t, err, ErrSessionExpired)
	})
}

func TestTwoFAGlobalScopeKeepsOnlyLatestChallenge(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		const n = 16
		tokens := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result, err := engine.Login(context.Background(), Credential{
					Email:    fmt.Sprintf("user%d@example.com", i),
					Password: DemoPassword,
				})
				if err == nil {
					tokens[i] = result.TempToken
				}
			}(i)
		}
		wg.Wait()

		verified := 0
		for _, token := range tokens {
			if token == "" {
				t.Fatal("concurrent 2FA login failed")
			}
			_, err := engine.VerifyTwoFA(context.Background(), token, h.sender.code(t, token))
			if err == nil {
				verified++
				continue
			}
			expectKindMessage(t, err, ErrSessionExpired)
		}
		if verified != 1 {
			t.Fatalf("expected exactly one verifiable challenge, got %d", verified)
		}
	}, withClassifier(alwaysTwoFA()))
}

func TestTwoFASecondLoginInvalidatesFirst(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		first := loginTwoFA(t, engine, DemoEmailTwoFA)
		second := loginTwoFA(t, engine, DemoEmailTwoFA)

		_, err := engine.VerifyTwoFA(context.Background(), first, h.sender.code(t, first))
		expectKindMessage(t, err, ErrSessionExpired)
		_, err = engine.ResendTwoFA(context.Background(), first)
		expectKindMessage(t, err, ErrSessionExpired)

		if _, err := engine.VerifyTwoFA(context.Background(), second, h.sender.code(t, second)); err != nil {
			t.Fatalf("latest challenge should verify: %v", err)
		}
	})
}

func TestTwoFAPerUserScope(t *testing.T) {
	cfg := testConfig()
	cfg.Challenge.Scope = ChallengeScopePerUser

	forEachBackend(t, cfg, func(t *testing.T, engine *Engine, h *testHarness) {
		alice1 := loginTwoFA(t, engine, "alice@example.com")
		bob := loginTwoFA(t, engine, "bob@example.com")
		alice2 := loginTwoFA(t, engine, "Alice@Example.com")

		_, err := engine.VerifyTwoFA(context.Background(), alice1, h.sender.code(t, alice1))
		expectKindMessage(t, err, ErrSessionExpired)

		for token, email := range map[string]string{bob: "bob@example.com", alice2: "alice@example.com"} {
			result, err := engine.VerifyTwoFA(context.Background(), token, h.sender.code(t, token))
			if err != nil {
				t.Fatalf("verify for %s failed: %v", email, err)
			}
			if result.User.Email != email {
				t.Fatalf("expected %s, got %s", email, result.User.Email)
			}
		}
	}, withClassifier(alwaysTwoFA()))
}

func TestTwoFAPerTokenScope(t *testing.T) {
	cfg := testConfig()
	cfg.Challenge.Scope = ChallengeScopePerToken

	forEachBackend(t, cfg, func(t *testing.T, engine *Engine, h *testHarness) {
		tokens := make([]string, 8)
		for i := range tokens {
			tokens[i] = loginTwoFA(t, engine, DemoEmailTwoFA)
		}
		for _, token := range tokens {
			if _, err := engine.VerifyTwoFA(context.Background(), token, h.sender.code(t, token)); err != nil {
				t.Fatalf("per-token challenge should verify: %v", err)
			}
		}
	})
}

func TestTwoFAVerifyReturnsOriginatingEmail(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, "  Carol@Example.ORG")

		result, err := engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken))
		if err != nil {
			t.Fatalf("VerifyTwoFA failed: %v", err)
		}
		if result.User.Email != "carol@example.org" {
			t.Fatalf("expected carol@example.org, got %q", result.User.Email)
		}
	}, withClassifier(alwaysTwoFA()))
}

func TestTwoFARememberReachesIssuer(t *testing.T) {
	var mu sync.Mutex
	var got []IssueRequest
	issuer := TokenIssuerFunc(func(_ context.Context, req IssueRequest) (string, error) {
		mu.Lock()
		got = append(got, req)
		mu.Unlock()
		return "session", nil
	})

	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		mu.Lock()
		got = nil
		mu.Unlock()

		result, err := engine.Login(context.Background(), Credential{Email: DemoEmailTwoFA, Password: DemoPassword, Remember: true})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if _, err := engine.VerifyTwoFA(context.Background(), result.TempToken, h.sender.code(t, result.TempToken)); err != nil {
			t.Fatalf("VerifyTwoFA failed: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(got) != 1 || got[0].Email != DemoEmailTwoFA || !got[0].Remember {
			t.Fatalf("unexpected issue requests: %+v", got)
		}
	}, func(b *Builder) { b.WithTokenIssuer(issuer) })
}

func TestTwoFAIssueFailureConsumesChallenge(t *testing.T) {
	issuer := TokenIssuerFunc(func(context.Context, IssueRequest) (string, error) {
		return "", errors.New("signer offline")
	})
	engine, h := newTestEngine(t, testConfig(), func(b *Builder) { b.WithTokenIssuer(issuer) })

	tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)
	code := h.sender.code(t, tempToken)

	_, err := engine.VerifyTwoFA(context.Background(), tempToken, code)
	expectKindMessage(t, err, ErrServer)

	_, err = engine.VerifyTwoFA(context.Background(), tempToken, code)
	expectKindMessage(t, err, ErrSessionExpired)
}

func TestTwoFAStatus(t *testing.T) {
	forEachBackend(t, testConfig(), func(t *testing.T, engine *Engine, h *testHarness) {
		tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)

		status, err := engine.TwoFAStatus(context.Background(), tempToken)
		if err != nil {
			t.Fatalf("TwoFAStatus failed: %v", err)
		}
		if !status.ExpiresAt.Equal(testEpoch.Add(60 * time.Second)) {
			t.Fatalf("unexpected expiry %s", status.ExpiresAt)
		}
		if status.Expired || status.Resends != 0 {
			t.Fatalf("unexpected status %+v", status)
		}

		h.clock.Advance(90 * time.Second)
		status, err = engine.TwoFAStatus(context.Background(), tempToken)
		if err != nil || !status.Expired {
			t.Fatalf("expected expired status, got %+v %v", status, err)
		}

		// Status is read-only: verify still reports the expiry once.
		_, err = engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken))
		expectKindMessage(t, err, ErrCodeExpired)

		_, err = engine.TwoFAStatus(context.Background(), tempToken)
		expectKindMessage(t, err, ErrSessionExpired)
		_, err = engine.TwoFAStatus(context.Background(), "")
		expectKindMessage(t, err, ErrSessionExpired)
	})
}

func TestTwoFAStoreFailureIsServerError(t *testing.T) {
	engine, h := newRedisTestEngine(t, testConfig())
	tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)
	code := h.sender.code(t, tempToken)
	h.redis.Close()

	_, err := engine.VerifyTwoFA(context.Background(), tempToken, code)
	expectKindMessage(t, err, ErrServer)

	_, err = engine.ResendTwoFA(context.Background(), tempToken)
	expectKindMessage(t, err, ErrServer)

	_, err = engine.TwoFAStatus(context.Background(), tempToken)
	expectKindMessage(t, err, ErrServer)
}

func TestTwoFAJWTIssuerFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Tokens.Type = TokenJWT
	cfg.Tokens.JWT.SigningMethod = "hs256"
	cfg.Tokens.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Tokens.JWT.Issuer = "authgate-test"

	engine, h := newTestEngine(t, cfg)
	tempToken := loginTwoFA(t, engine, DemoEmailTwoFA)

	result, err := engine.VerifyTwoFA(context.Background(), tempToken, h.sender.code(t, tempToken))
	if err != nil {
		t.Fatalf("VerifyTwoFA failed: %v", err)
	}

	manager, ok := engine.JWTManager()
	if !ok {
		t.Fatalf("expected a JWT issuer, got %T", engine.issuer)
	}
	claims, err := manager.ParseSession(result.Token)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if claims.Email != DemoEmailTwoFA || claims.Issuer != "authgate-test" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected 1h session, got %s", got)
	}
}

func TestTwoFAAuditTrail(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(32)
	engine, h := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithRequestID(WithClientIP(context.Background(), "203.0.113.7"), "req-1")
	result, err := engine.Login(ctx, Credential{Email: DemoEmailTwoFA, Password: DemoPassword})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	tempToken := result.TempToken
	_, _ = engine.VerifyTwoFA(ctx, tempToken, "not-it")
	if _, err := engine.ResendTwoFA(ctx, tempToken); err != nil {
		t.Fatalf("ResendTwoFA failed: %v", err)
	}
	if _, err := engine.VerifyTwoFA(ctx, tempToken, h.sender.code(t, tempToken)); err != nil {
		t.Fatalf("VerifyTwoFA failed: %v", err)
	}
	engine.Close()

	want := []string{
		auditEventTwoFARequired,
		auditEventTwoFAFailure,
		auditEventTwoFAResent,
		auditEventTwoFAVerified,
	}
	for i, eventType := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != eventType {
				t.Fatalf("event %d: expected %s, got %s", i, eventType, ev.EventType)
			}
			if ev.IP != "203.0.113.7" || ev.RequestID != "req-1" || ev.ID == "" {
				t.Fatalf("event %d missing request context: %+v", i, ev)
			}
			if ev.EventType == auditEventTwoFAFailure && ev.Error != string(auditErrInvalidCode) {
				t.Fatalf("expected invalid code audit error, got %q", ev.Error)
			}
		default:
			t.Fatalf("missing audit event %d (%s)", i, eventType)
		}
	}
}
