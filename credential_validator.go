package guard

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// CredentialValidator checks an email/password pair against the identity
// store. All rejection paths collapse into ErrInvalidCredentials and run a
// bcrypt comparison so response timing does not reveal whether the email
// exists.
type CredentialValidator struct {
	store          IdentityStore
	logger         Logger
	comparisonHash string
}

// NewCredentialValidator builds a validator. The comparison hash used to
// equalize timing on miss paths is generated once here, not per request.
func NewCredentialValidator(store IdentityStore, logger Logger) *CredentialValidator {
	if logger == nil {
		logger = defLogger{}
	}
	return &CredentialValidator{
		store:          store,
		logger:         logger,
		comparisonHash: RandomPasswordHash(),
	}
}

// Validate authenticates the credentials and returns the matching identity
// with its secret material stripped.
func (cv *CredentialValidator) Validate(ctx context.Context, email, password string) (Identity, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := cv.store.FindByEmail(ctx, email, false)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			cv.burnComparison(password)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "credential lookup failed")
	}

	if !user.Authenticatable() {
		cv.logger.Warn("CredentialValidator rejected ineligible identity", "identity", user.ID.String())
		cv.burnComparison(password)
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &authIdentity{
		id:    user.ID.String(),
		email: user.Email,
	}, nil
}

// burnComparison runs a bcrypt compare against a throwaway hash so miss
// paths cost roughly the same as a real comparison.
func (cv *CredentialValidator) burnComparison(password string) {
	_ = ComparePasswordAndHash(password, cv.comparisonHash)
}

type authIdentity struct {
	id    string
	email string
}

func (a *authIdentity) ID() string    { return a.id }
func (a *authIdentity) Email() string { return a.email }
