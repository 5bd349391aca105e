// Package internal contains helper utilities that are intentionally private to authgate,
// chiefly secure random generation for temp tokens, one-time codes and session tokens.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - stores: 2FA challenge stores (in-memory and Redis)
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
