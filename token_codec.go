package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// JWTCodec signs and verifies HS256 access tokens.
type JWTCodec struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenCodec builds a codec from configuration. It fails when no signing
// key is configured so the process cannot come up issuing unverifiable
// tokens.
func NewTokenCodec(cfg Config, logger Logger) (*JWTCodec, error) {
	if logger == nil {
		logger = defLogger{}
	}

	key := strings.TrimSpace(cfg.GetSigningKey())
	if key == "" {
		return nil, ErrMissingSigningKey
	}

	ttl, err := ParseTokenTTL(cfg.GetTokenTTL())
	if err != nil {
		return nil, err
	}

	return &JWTCodec{
		signingKey: []byte(key),
		ttl:        ttl,
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     logger,
	}, nil
}

// TTL is the configured token lifetime.
func (ts *JWTCodec) TTL() time.Duration { return ts.ttl }

// Sign issues a token for the identity with the configured lifetime.
func (ts *JWTCodec) Sign(identity Identity) (string, error) {
	return ts.SignWithTTL(identity, ts.ttl)
}

// SignWithTTL issues a token for the identity with an explicit lifetime.
func (ts *JWTCodec) SignWithTTL(identity Identity, ttl time.Duration) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.copyAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserEmail: identity.Email(),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *JWTCodec) SignClaims(claims *AccessClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning structured claims.
// Expired tokens surface as ErrTokenExpired, everything else as a malformed
// token error.
func (ts *JWTCodec) Verify(tokenString string) (Claims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenCodec verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenCodec verify could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *JWTCodec) copyAudience() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}
