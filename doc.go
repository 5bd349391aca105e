// Package authgate runs a login handshake with an optional second factor:
// credential classification, one-time code challenges, verification, resend
// and expiry.
//
// [Engine] methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. Every failure is an [*AuthError]
// from a closed set of kinds; branch on [KindOf] or match the exported
// sentinels with errors.Is.
//
// # Challenges
//
// A 2FA login stores a challenge (temp token, code, originating email,
// expiry) in a slot. A slot holds at most one challenge: in the default
// [ChallengeScopeGlobal] a new 2FA login replaces whatever was pending.
// [ChallengeScopePerUser] keys slots by email and [ChallengeScopePerToken]
// never replaces.
//
// Verification is one atomic store operation. A wrong code leaves the
// challenge usable; the first verify after expiry reports "Code expired" and
// clears it, so the next one reports "Session expired". Resend restarts the
// validity window under the same temp token, even after expiry.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Hold a lock or touch the store while Login waits out its delay.
//   - Log codes or tokens, except through the opt-in [LogCodeSender].
package authgate
