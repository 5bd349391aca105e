package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type challengeStore interface {
	Put(ctx context.Context, record *Challenge, retention time.Duration) error
	Get(ctx context.Context, tempToken string) (*Challenge, error)
	Verify(ctx context.Context, tempToken, code string, now time.Time) (*Challenge, error)
	Refresh(ctx context.Context, tempToken, code string, expiresAt time.Time, retention time.Duration) (*Challenge, error)
}

const testRetention = 10 * time.Minute

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newRedisTestStore(t *testing.T) (*RedisChallengeStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisChallengeStore(rdb, "test"), mr
}

func forEachStore(t *testing.T, fn func(t *testing.T, store challengeStore)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		store := NewMemoryChallengeStore()
		t.Cleanup(store.Close)
		fn(t, store)
	})
	t.Run("redis", func(t *testing.T) {
		store, _ := newRedisTestStore(t)
		fn(t, store)
	})
}

func newChallenge(token, slot string) *Challenge {
	return &Challenge{
		TempToken: token,
		Code:      "012345",
		Email:     "2fa@demo.dev",
		Slot:      slot,
		ExpiresAt: testNow.Add(time.Minute).UnixMilli(),
	}
}

func TestChallengeCodecRoundTrip(t *testing.T) {
	in := newChallenge("tok", "global")
	in.Resends = 3
	in.Remember = true

	data, err := encodeChallenge(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := decodeChallenge("tok", data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestChallengeDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := decodeChallenge("tok", []byte{9, 0, 0}); err == nil {
		t.Fatal("expected version error")
	}
	if _, err := decodeChallenge("tok", nil); err == nil {
		t.Fatal("expected error for empty record")
	}
}

func TestChallengeExpiredBoundary(t *testing.T) {
	c := newChallenge("tok", "global")
	deadline := c.ExpiresTime()
	if c.Expired(deadline) {
		t.Fatal("challenge must still be valid exactly at expiresAt")
	}
	if !c.Expired(deadline.Add(time.Millisecond)) {
		t.Fatal("challenge must be expired after expiresAt")
	}
}

func TestStoreVerifyMatchConsumes(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("tok", "global"), testRetention); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		record, err := store.Verify(ctx, "tok", "012345", testNow)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if record.Email != "2fa@demo.dev" {
			t.Fatalf("expected originating email, got %q", record.Email)
		}
		if _, err := store.Verify(ctx, "tok", "012345", testNow); !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound after consume, got %v", err)
		}
	})
}

func TestStoreVerifyMismatchKeepsChallenge(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("tok", "global"), testRetention); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		for i := 0; i < 3; i++ {
			if _, err := store.Verify(ctx, "tok", "999999", testNow); !errors.Is(err, ErrChallengeCodeMismatch) {
				t.Fatalf("attempt %d: expected ErrChallengeCodeMismatch, got %v", i, err)
			}
		}
		if _, err := store.Verify(ctx, "tok", "012345", testNow); err != nil {
			t.Fatalf("expected retry with correct code to succeed, got %v", err)
		}
	})
}

func TestStoreVerifyExpiredClearsOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("tok", "global"), testRetention); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		late := testNow.Add(61 * time.Second)
		if _, err := store.Verify(ctx, "tok", "012345", late); !errors.Is(err, ErrChallengeExpired) {
			t.Fatalf("expected ErrChallengeExpired, got %v", err)
		}
		if _, err := store.Verify(ctx, "tok", "012345", late); !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound on second attempt, got %v", err)
		}
	})
}

func TestStoreExpiredMismatchStillReportsExpired(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("tok", "global"), testRetention); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, err := store.Verify(ctx, "tok", "000000", testNow.Add(2*time.Minute)); !errors.Is(err, ErrChallengeExpired) {
			t.Fatalf("expiry must be checked before the code, got %v", err)
		}
	})
}

func TestStorePutReplacesSlot(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("first", "global"), testRetention); err != nil {
			t.Fatalf("Put first failed: %v", err)
		}
		if err := store.Put(ctx, newChallenge("second", "global"), testRetention); err != nil {
			t.Fatalf("Put second failed: %v", err)
		}

		if _, err := store.Get(ctx, "first"); !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("expected displaced challenge to be gone, got %v", err)
		}
		if _, err := store.Get(ctx, "second"); err != nil {
			t.Fatalf("expected newest challenge to remain, got %v", err)
		}
	})
}

func TestStoreDistinctSlotsCoexist(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("a", "alice@example.com"), testRetention); err != nil {
			t.Fatalf("Put a failed: %v", err)
		}
		if err := store.Put(ctx, newChallenge("b", "bob@example.com"), testRetention); err != nil {
			t.Fatalf("Put b failed: %v", err)
		}
		for _, token := range []string{"a", "b"} {
			if _, err := store.Verify(ctx, token, "012345", testNow); err != nil {
				t.Fatalf("Verify %s failed: %v", token, err)
			}
		}
	})
}

func TestStoreRefreshKeepsTokenAndRevives(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("tok", "global"), testRetention); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		late := testNow.Add(5 * time.Minute)
		record, err := store.Refresh(ctx, "tok", "654321", late.Add(time.Minute), testRetention)
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if record.TempToken != "tok" || record.Code != "654321" || record.Resends != 1 {
			t.Fatalf("unexpected refreshed record: %+v", record)
		}

		if _, err := store.Verify(ctx, "tok", "012345", late); !errors.Is(err, ErrChallengeCodeMismatch) {
			t.Fatalf("expected old code to be rejected, got %v", err)
		}
		if _, err := store.Verify(ctx, "tok", "654321", late); err != nil {
			t.Fatalf("expected revived challenge to verify, got %v", err)
		}
	})
}

func TestStoreRefreshMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		_, err := store.Refresh(context.Background(), "missing", "123456", testNow, testRetention)
		if !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound, got %v", err)
		}
	})
}

func TestStoreConcurrentPutLastWriteWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		const n = 16

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- store.Put(ctx, newChallenge(fmt.Sprintf("tok-%d", i), "global"), testRetention)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		live := 0
		for i := 0; i < n; i++ {
			if _, err := store.Verify(ctx, fmt.Sprintf("tok-%d", i), "012345", testNow); err == nil {
				live++
			}
		}
		if live != 1 {
			t.Fatalf("expected exactly one verifiable challenge, got %d", live)
		}
	})
}

func TestStoreConcurrentVerifyConsumesOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, store challengeStore) {
		ctx := context.Background()
		if err := store.Put(ctx, newChallenge("tok", "global"), testRetention); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Verify(ctx, "tok", "012345", testNow); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Fatalf("expected exactly one successful verify, got %d", wins)
		}
	})
}

func TestRedisStoreRetentionEvicts(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, newChallenge("tok", "global"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !mr.Exists("test:c:tok") || !mr.Exists("test:s:global") {
		t.Fatal("expected challenge and slot keys to exist")
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "tok"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected retention to evict challenge, got %v", err)
	}
}

func TestRedisStoreBackendError(t *testing.T) {
	store, mr := newRedisTestStore(t)
	mr.Close()

	err := store.Put(context.Background(), newChallenge("tok", "global"), time.Minute)
	if !errors.Is(err, ErrChallengeBackend) {
		t.Fatalf("expected ErrChallengeBackend, got %v", err)
	}
	if _, err := store.Verify(context.Background(), "tok", "012345", testNow); !errors.Is(err, ErrChallengeBackend) {
		t.Fatalf("expected ErrChallengeBackend from Verify, got %v", err)
	}
}
