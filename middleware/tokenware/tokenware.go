// Package tokenware provides bearer token middleware for go-router. It
// extracts a raw token from the request, hands it to a Validator, and binds
// the resulting claims to the request context.
package tokenware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization
	// ErrTokenMissing covers requests that carry no usable token.
	ErrTokenMissing = errors.New("missing or malformed JWT")
)

// Validator verifies a raw token and returns its claims. Implementations
// may hit storage, so they receive the request context.
type Validator interface {
	Validate(ctx context.Context, tokenString string) (Claims, error)
}

// Claims is the subset of token claims the middleware propagates. It avoids
// an import cycle with the packages that own the full claim types.
type Claims interface {
	Subject() string
	Email() string
}

// ContextEnricher propagates claims to the standard Go context after a
// successful validation.
type ContextEnricher func(c context.Context, claims Claims) context.Context

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// Validator checks the raw token. When nil, a key based validator is
	// built from SigningKey, SigningKeys, JWKSetURLs, or KeyFunc.
	Validator       Validator
	SigningKey      SigningKey
	SigningKeys     map[string]SigningKey
	JWKSetURLs      []string
	KeyFunc         jwt.Keyfunc
	ContextKey      string
	TokenLookup     string
	AuthScheme      string
	ContextEnricher ContextEnricher
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.Validator.Validate(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				ctx.SetContext(cfg.ContextEnricher(stdCtx, claims))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrTokenMissing.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissing.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Validator == nil {
		if cfg.SigningKey.Key == nil && len(cfg.SigningKeys) == 0 && len(cfg.JWKSetURLs) == 0 && cfg.KeyFunc == nil {
			panic("GUARD: token middleware configuration: At least one of the following is required: Validator, KeyFunc, JWKSetURLs, SigningKeys, or SigningKey.")
		}
		cfg.Validator = &keyValidator{keyFunc: cfg.resolveKeyFunc()}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) resolveKeyFunc() jwt.Keyfunc {
	if cfg.KeyFunc != nil {
		return cfg.KeyFunc
	}

	if len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0 {
		var givenKeys map[string]keyfunc.GivenKey
		if cfg.SigningKeys != nil {
			givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
			for kid, key := range cfg.SigningKeys {
				givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
					Algorithm: key.JWTAlg,
				})
			}
		}
		if len(cfg.JWKSetURLs) > 0 {
			kf, err := multiKeyfunc(givenKeys, cfg.JWKSetURLs)
			if err != nil {
				panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
			}
			return kf
		}
		return keyfunc.NewGiven(givenKeys).Keyfunc
	}

	return signingKeyFunc(cfg.SigningKey)
}

// keyValidator parses tokens against a key function when no external
// Validator is configured. It performs no subject liveness check.
type keyValidator struct {
	keyFunc jwt.Keyfunc
}

func (v *keyValidator) Validate(_ context.Context, tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, v.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMissing
	}

	return mapClaims(claims), nil
}

type mapClaims jwt.MapClaims

func (m mapClaims) Subject() string {
	if sub, ok := m["sub"].(string); ok {
		return sub
	}
	return ""
}

func (m mapClaims) Email() string {
	if email, ok := m["email"].(string); ok {
		return email
	}
	return ""
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwtSetUrls []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwtSetUrls))
	for _, url := range jwtSetUrls {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		//header:Authorization
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts token from the request header.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			fmt.Println("[WARNING] Missing auth scheme in config definition")
			return "", ErrTokenMissing
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

// tokenFromQuery returns a function that extracts token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts token from the url param string.
func tokenFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected jwt signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}
