package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Every login in a shared slot contends on the slot key, so Put retries longer.
const (
	maxTxRetries     = 4
	maxSlotTxRetries = 64
)

// RedisChallengeStore keeps challenges in Redis. Records live under
// "<prefix>:c:<tempToken>"; "<prefix>:s:<slot>" points at the slot's
// current temp token.
type RedisChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisChallengeStore(redisClient redis.UniversalClient, prefix string) *RedisChallengeStore {
	if prefix == "" {
		prefix = "a2f"
	}
	return &RedisChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisChallengeStore) challengeKey(tempToken string) string {
	return s.prefix + ":c:" + tempToken
}

func (s *RedisChallengeStore) slotKey(slot string) string {
	return s.prefix + ":s:" + slot
}

// Put stores record and makes it the only challenge of its slot.
func (s *RedisChallengeStore) Put(ctx context.Context, record *Challenge, retention time.Duration) error {
	encoded, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	slotKey := s.slotKey(record.Slot)
	key := s.challengeKey(record.TempToken)

	for i := 0; i < maxSlotTxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			previous, err := tx.Get(ctx, slotKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if previous != "" && previous != record.TempToken {
					pipe.Del(ctx, s.challengeKey(previous))
				}
				pipe.Set(ctx, key, encoded, retention)
				pipe.Set(ctx, slotKey, record.TempToken, retention)
				return nil
			})
			return err
		}, slotKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return nil
	}

	return fmt.Errorf("%w: slot contention", ErrChallengeBackend)
}

// Get returns the challenge without mutating it.
func (s *RedisChallengeStore) Get(ctx context.Context, tempToken string) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.challengeKey(tempToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallenge(tempToken, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return record, nil
}

// Verify checks code against the challenge. An expired challenge is removed
// and reported; a mismatch leaves it in place; a match consumes it.
func (s *RedisChallengeStore) Verify(ctx context.Context, tempToken, code string, now time.Time) (*Challenge, error) {
	key := s.challengeKey(tempToken)

	for i := 0; i < maxTxRetries; i++ {
		var consumed *Challenge
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallenge(tempToken, data)
			if err != nil {
				return err
			}
			if record.Expired(now) {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrChallengeExpired
			}
			if !codesEqual(record.Code, code) {
				return ErrChallengeCodeMismatch
			}

			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			}); err != nil {
				return err
			}
			consumed = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrChallengeNotFound
			case errors.Is(err, ErrChallengeExpired), errors.Is(err, ErrChallengeCodeMismatch):
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return consumed, nil
	}

	return nil, fmt.Errorf("%w: challenge contention", ErrChallengeBackend)
}

// Refresh replaces the code and expiry of an existing challenge, keeping its
// temp token. Prior expiry is not checked.
func (s *RedisChallengeStore) Refresh(
	ctx context.Context,
	tempToken string,
	code string,
	expiresAt time.Time,
	retention time.Duration,
) (*Challenge, error) {
	key := s.challengeKey(tempToken)

	for i := 0; i < maxTxRetries; i++ {
		var updated *Challenge
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallenge(tempToken, data)
			if err != nil {
				return err
			}
			record.Code = code
			record.ExpiresAt = expiresAt.UnixMilli()
			if record.Resends < ^uint16(0) {
				record.Resends++
			}

			encoded, err := encodeChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, retention)
				pipe.Expire(ctx, s.slotKey(record.Slot), retention)
				return nil
			})
			if err != nil {
				return err
			}
			updated = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrChallengeNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return updated, nil
	}

	return nil, fmt.Errorf("%w: challenge contention", ErrChallengeBackend)
}
