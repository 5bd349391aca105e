package stores

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryChallengeStore keeps challenges in process. A single mutex guards
// every read-modify-write sequence; the caches only provide retention.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges *ttlcache.Cache[string, Challenge]
	slots      *ttlcache.Cache[string, string]
}

// NewMemoryChallengeStore creates a store and starts its cleanup loop.
// Call Close to stop it.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	s := &MemoryChallengeStore{
		challenges: ttlcache.New[string, Challenge](
			ttlcache.WithDisableTouchOnHit[string, Challenge](),
		),
		slots: ttlcache.New[string, string](
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}

	go s.challenges.Start()
	go s.slots.Start()

	return s
}

// Close stops the cleanup loops.
func (s *MemoryChallengeStore) Close() {
	s.challenges.Stop()
	s.slots.Stop()
}

// Put stores record and makes it the only challenge of its slot.
func (s *MemoryChallengeStore) Put(_ context.Context, record *Challenge, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.slots.Get(record.Slot); item != nil && item.Value() != record.TempToken {
		s.challenges.Delete(item.Value())
	}
	s.challenges.Set(record.TempToken, *record, retention)
	s.slots.Set(record.Slot, record.TempToken, retention)
	return nil
}

// Get returns the challenge without mutating it.
func (s *MemoryChallengeStore) Get(_ context.Context, tempToken string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.challenges.Get(tempToken)
	if item == nil {
		return nil, ErrChallengeNotFound
	}
	record := item.Value()
	return &record, nil
}

// Verify checks code against the challenge. An expired challenge is removed
// and reported; a mismatch leaves it in place; a match consumes it.
func (s *MemoryChallengeStore) Verify(_ context.Context, tempToken, code string, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.challenges.Get(tempToken)
	if item == nil {
		return nil, ErrChallengeNotFound
	}
	record := item.Value()

	if record.Expired(now) {
		s.deleteLocked(&record)
		return nil, ErrChallengeExpired
	}
	if !codesEqual(record.Code, code) {
		return nil, ErrChallengeCodeMismatch
	}

	s.deleteLocked(&record)
	return &record, nil
}

// Refresh replaces the code and expiry of an existing challenge, keeping its
// temp token. Prior expiry is not checked.
func (s *MemoryChallengeStore) Refresh(
	_ context.Context,
	tempToken string,
	code string,
	expiresAt time.Time,
	retention time.Duration,
) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.challenges.Get(tempToken)
	if item == nil {
		return nil, ErrChallengeNotFound
	}
	record := item.Value()
	record.Code = code
	record.ExpiresAt = expiresAt.UnixMilli()
	if record.Resends < ^uint16(0) {
		record.Resends++
	}

	s.challenges.Set(tempToken, record, retention)
	s.slots.Set(record.Slot, tempToken, retention)
	return &record, nil
}

// Len returns the number of retained challenges.
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenges.Len()
}

func (s *MemoryChallengeStore) deleteLocked(record *Challenge) {
	s.challenges.Delete(record.TempToken)
	if item := s.slots.Get(record.Slot); item != nil && item.Value() == record.TempToken {
		s.slots.Delete(record.Slot)
	}
}
