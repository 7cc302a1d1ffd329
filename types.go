package guard

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of a verified principal. Implementations
// never expose the stored secret hash.
type Identity interface {
	ID() string
	Email() string
}

// IdentityStore is the persistence collaborator the core consumes. The
// storage layer owns the records; the core holds request-scoped copies only.
type IdentityStore interface {
	// FindByEmail resolves an identity by email. Soft-deleted records are
	// excluded unless includeDeleted is set.
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// TrackSuccessfulLogin stamps the last-authentication timestamp. Callers
	// treat it as best effort.
	TrackSuccessfulLogin(ctx context.Context, id string) error
}

// CredentialVerifier turns a submitted email/password pair into a verified
// Identity or a rejection.
type CredentialVerifier interface {
	Validate(ctx context.Context, email, password string) (Identity, error)
}

// TokenCodec signs claims into bearer tokens and verifies them back,
// enforcing expiry.
type TokenCodec interface {
	Sign(identity Identity) (string, error)
	SignWithTTL(identity Identity, ttl time.Duration) (string, error)
	Verify(tokenString string) (Claims, error)
}

// TokenVerifier is the read side of TokenCodec, for callers that only check
// tokens issued elsewhere.
type TokenVerifier interface {
	Verify(tokenString string) (Claims, error)
}

// Config holds the immutable values the core needs. It is constructed once at
// process start; request paths never read ambient environment.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenTTL() string
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
}

// PasswordAuthenticator hashes and compares secrets
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GUARD "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GUARD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GUARD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GUARD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
