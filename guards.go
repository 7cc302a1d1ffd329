package guard

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// GuardStage names a position in the authentication chain.
type GuardStage string

const (
	// StageCredential authenticates an email/password pair.
	StageCredential GuardStage = "credential"
	// StageToken authenticates a bearer token.
	StageToken GuardStage = "token"
)

// GuardState is the outcome of a guard evaluation. Every Check starts from
// StateUnchecked; state never carries over between requests.
type GuardState int

const (
	StateUnchecked GuardState = iota
	StateChecking
	StateAuthenticated
	StateRejected
)

func (s GuardState) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// GuardInput carries the request material a guard may consume. Stages ignore
// fields that are not theirs.
type GuardInput struct {
	Email    string
	Password string
	Token    string
}

// GuardResult is the terminal state of a single guard evaluation.
type GuardResult struct {
	State    GuardState
	Identity Identity
	Claims   Claims
	Reason   error
}

func authenticated(identity Identity, claims Claims) GuardResult {
	return GuardResult{State: StateAuthenticated, Identity: identity, Claims: claims}
}

func rejected(reason error) GuardResult {
	return GuardResult{State: StateRejected, Reason: reason}
}

// GuardCheck is a single authentication stage.
type GuardCheck interface {
	Stage() GuardStage
	Check(ctx context.Context, input GuardInput) GuardResult
}

// CredentialGuard authenticates email/password input through a
// CredentialVerifier.
type CredentialGuard struct {
	verifier CredentialVerifier
}

// NewCredentialGuard wires a verifier into the chain.
func NewCredentialGuard(verifier CredentialVerifier) *CredentialGuard {
	return &CredentialGuard{verifier: verifier}
}

func (g *CredentialGuard) Stage() GuardStage { return StageCredential }

func (g *CredentialGuard) Check(ctx context.Context, input GuardInput) GuardResult {
	if input.Email == "" || input.Password == "" {
		return rejected(ErrInvalidCredentials)
	}

	identity, err := g.verifier.Validate(ctx, input.Email, input.Password)
	if err != nil {
		return rejected(err)
	}

	return authenticated(identity, nil)
}

// TokenGuard authenticates bearer tokens. After cryptographic verification
// it re-fetches the subject and requires it to still be authenticatable, so
// deactivating an identity takes effect before the token expires.
type TokenGuard struct {
	verifier TokenVerifier
	store    IdentityStore
	logger   Logger
}

// NewTokenGuard wires a token verifier and identity store into the chain.
func NewTokenGuard(verifier TokenVerifier, store IdentityStore, logger Logger) *TokenGuard {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenGuard{verifier: verifier, store: store, logger: logger}
}

func (g *TokenGuard) Stage() GuardStage { return StageToken }

func (g *TokenGuard) Check(ctx context.Context, input GuardInput) GuardResult {
	identity, claims, err := g.check(ctx, input.Token)
	if err != nil {
		return rejected(err)
	}
	return authenticated(identity, claims)
}

// Validate verifies a raw token and returns its claims. It runs the same
// liveness re-check as Check, which makes TokenGuard usable directly as a
// middleware validator.
func (g *TokenGuard) Validate(ctx context.Context, raw string) (Claims, error) {
	_, claims, err := g.check(ctx, raw)
	return claims, err
}

func (g *TokenGuard) check(ctx context.Context, raw string) (Identity, Claims, error) {
	if raw == "" {
		return nil, nil, ErrTokenMalformed
	}

	claims, err := g.verifier.Verify(raw)
	if err != nil {
		return nil, nil, err
	}

	user, err := g.store.FindByID(ctx, claims.Subject())
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, nil, ErrSubjectNotEligible
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "token subject lookup failed")
	}

	if !user.Authenticatable() {
		g.logger.Warn("TokenGuard rejected ineligible subject", "identity", claims.Subject())
		return nil, nil, ErrSubjectNotEligible
	}

	return &authIdentity{id: user.ID.String(), email: user.Email}, claims, nil
}

// GuardChain dispatches to guards by stage. Each evaluation is independent:
// the chain holds no per-request state.
type GuardChain struct {
	guards []GuardCheck
}

// NewGuardChain builds a chain from the given guards, in order.
func NewGuardChain(guards ...GuardCheck) *GuardChain {
	return &GuardChain{guards: guards}
}

// Stage returns the guard registered for the stage, if any.
func (gc *GuardChain) Stage(stage GuardStage) (GuardCheck, bool) {
	for _, g := range gc.guards {
		if g.Stage() == stage {
			return g, true
		}
	}
	return nil, false
}

// Check evaluates the guard registered for the stage. A stage with no guard
// rejects, it never falls through as authenticated.
func (gc *GuardChain) Check(ctx context.Context, stage GuardStage, input GuardInput) GuardResult {
	g, ok := gc.Stage(stage)
	if !ok {
		return rejected(errors.New("no guard registered for stage", errors.CategoryInternal).
			WithMetadata(map[string]any{"stage": string(stage)}))
	}
	return g.Check(ctx, input)
}
