// Package guard provides credential authentication and request authorization
// primitives for multi-user services: password verification against stored
// identities, signed access-token issuance and verification, a two-stage guard
// chain for protecting routes, and a boundary translator that turns internal
// failures into a uniform client-facing error envelope.
//
// Guard chain:
//   - CredentialGuard validates a submitted email/password pair via a
//     CredentialValidator. TokenGuard verifies a bearer token and re-checks
//     that its subject is still active and not soft-deleted before binding the
//     identity to the request context. Both stages produce the same
//     GuardResult shape and keep no state between requests.
//
// Error translation:
//   - ErrorTranslator is the single place that converts failures (typed auth
//     and validation errors, storage constraint violations, anything else)
//     into an ErrorEnvelope and HTTP status. Components below the boundary
//     classify their own failures with go-errors categories and never build
//     client-facing bodies.
//
// Storage:
//   - The Users repository persists identities via Bun with soft-delete
//     semantics. The core consumes it through the IdentityStore interface and
//     holds only request-scoped copies; the signed token is the only session
//     state between requests.
package guard
