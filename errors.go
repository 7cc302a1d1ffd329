package guard

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds is the stable code for rejected credentials.
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeTokenMalformed covers structural and signature failures.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeTokenExpired marks well-formed tokens past their expiry.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeSubjectNotEligible marks valid tokens whose subject has since
	// been deactivated or soft-deleted.
	TextCodeSubjectNotEligible = "SUBJECT_NOT_ELIGIBLE"
	// TextCodeEmptyPassword rejects empty secrets before hashing.
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeMissingSigningKey is fatal at startup.
	TextCodeMissingSigningKey = "MISSING_SIGNING_KEY"
)

// ErrInvalidCredentials is the single external signal for unknown email,
// inactive or deleted identity, and password mismatch. Collapsing them keeps
// the login endpoint from confirming whether an email exists.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail structural parsing or
// signature verification.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for structurally valid tokens past expiry.
// Callers can distinguish it from ErrTokenMalformed for user messaging even
// though both surface as the same guard rejection.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrSubjectNotEligible is returned when a cryptographically valid token
// references an identity that no longer exists, is inactive, or soft-deleted.
var ErrSubjectNotEligible = errors.New("token subject is no longer eligible", errors.CategoryAuth).
	WithTextCode(TextCodeSubjectNotEligible).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach the hasher.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMissingSigningKey prevents the process from serving requests without a
// signing secret.
var ErrMissingSigningKey = errors.New("signing secret is required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingSigningKey).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed or missing tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
