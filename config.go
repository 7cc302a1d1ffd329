package guard

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultTokenTTL is used when no lifetime is configured.
const DefaultTokenTTL = time.Hour

// SimpleConfig is a plain struct implementation of Config, ready for wiring
// from env vars or a config file.
type SimpleConfig struct {
	SigningKey    string
	SigningMethod string
	TokenTTL      string
	Issuer        string
	Audience      []string
	ContextKey    string
	TokenLookup   string
	AuthScheme    string
}

func (c SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c SimpleConfig) GetTokenTTL() string      { return c.TokenTTL }
func (c SimpleConfig) GetIssuer() string        { return c.Issuer }
func (c SimpleConfig) GetAudience() []string    { return c.Audience }
func (c SimpleConfig) GetContextKey() string    { return c.ContextKey }
func (c SimpleConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c SimpleConfig) GetAuthScheme() string    { return c.AuthScheme }

// Validate fails fast on configuration the token codec cannot operate
// without. Call it at process startup, before any request is served.
func (c SimpleConfig) Validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return ErrMissingSigningKey
	}

	if _, err := ParseTokenTTL(c.TokenTTL); err != nil {
		return err
	}

	return nil
}

// ParseTokenTTL resolves the configured token lifetime. An empty value falls
// back to DefaultTokenTTL.
func ParseTokenTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTokenTTL, nil
	}

	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryValidation, "invalid token TTL").
			WithMetadata(map[string]any{"value": raw})
	}

	if ttl <= 0 {
		return 0, errors.New("token TTL must be positive", errors.CategoryValidation).
			WithMetadata(map[string]any{"value": raw})
	}

	return ttl, nil
}
