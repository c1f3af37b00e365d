// Package auth implements authentication and account lifecycle for an API
// backend: password and social login, stateful JWT sessions, registration
// with email verification, password reset, and admin account controls.
//
// Sessions:
//   - Every signed JWT is paired with a row in the tokens table. Logout and
//     admin resets revoke or delete rows, so a token stops working the
//     moment its row does, regardless of its exp claim.
//   - Each session also carries an opaque refresh token. Refreshing rotates
//     both: the old row is consumed in the same transaction that issues the
//     new one.
//
// Identity resolution:
//   - Password logins look the account up by phone number first, then
//     email, and answer every failure with the same generic error.
//   - Social logins resolve by provider id, then merge into an existing
//     account by email, then create a new one. The literal "0" is a legacy
//     placeholder for "no linked account" and never matches.
//
// Lifecycle commands:
//   - Registration creates an inactive account and mails a 24 hour
//     verification link; verifying activates the account and hard-deletes
//     the token. Password resets use 1 hour single-use tokens that are kept
//     consumed so replays fail loudly.
package auth
