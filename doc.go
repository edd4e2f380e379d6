// Package accounts implements email/password account management: signup with
// email verification, login, and stateless JWT session tokens.
//
// Verification lifecycle:
//   - Users are created unverified. Signup issues a single-use, time-limited
//     VerificationToken and mails a confirmation link. Confirming a valid token
//     flips the account to verified exactly once; verified is terminal.
//   - Resending invalidates any outstanding token for the user before a new one
//     is issued, so at most one live token exists per account.
//
// Session tokens:
//   - TokenService signs an access/refresh JWT pair with independent TTLs. The
//     token_type claim is asserted on every validation, never inferred from the
//     call site, so a refresh token can not be replayed where an access token
//     is expected.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     verification handlers to describe signup, confirmation, and login events.
//     Sinks run best-effort (errors are logged) so you can forward to a
//     database or queue without blocking authentication.
package accounts
