// Package stores provides short-lived record stores for pending 2FA login
// challenges, backed either by an in-process TTL cache or by Redis.
//
// # Design
//
// A challenge is keyed by its temp token and belongs to a slot. A slot holds
// at most one pending challenge: writing a new challenge into a slot discards
// the previous one. Expiry is evaluated against a caller-supplied clock so the
// record outlives its validity window; retention (the backend TTL) only
// bounds how long an abandoned record is kept.
//
// Verify is a single atomic check-then-clear step: the memory store holds its
// mutex for the whole sequence, and the Redis store uses WATCH/MULTI
// optimistic transactions with bounded retry on contention. Codes are
// compared in constant time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for challenge
// records. It does NOT generate tokens or codes, classify credentials, or
// decide which error a caller sees; those belong to the authgate engine.
//
// # What this package must NOT do
//
//   - Import authgate or any sibling internal package.
//   - Log or expose one-time codes.
//   - Use non-constant-time comparisons for code matching.
package stores
