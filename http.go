package guard

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard/middleware/tokenware"
	"github.com/goliatone/go-router"
)

// RouteGuard wires the token guard into HTTP middleware. Protected routes
// run every request through token extraction, verification, and subject
// liveness before the handler sees it.
type RouteGuard struct {
	guard        *TokenGuard
	cfg          Config
	translator   *ErrorTranslator
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

// NewRouteGuard builds the middleware factory.
func NewRouteGuard(guard *TokenGuard, cfg Config, translator *ErrorTranslator) (*RouteGuard, error) {
	if guard == nil {
		return nil, errors.New("route guard requires a token guard", errors.CategoryInternal)
	}

	if translator == nil {
		translator = NewErrorTranslator(nil)
	}

	rg := &RouteGuard{
		guard:      guard,
		cfg:        cfg,
		translator: translator,
		Logger:     defLogger{},
	}

	rg.ErrorHandler = rg.defaultErrHandler

	return rg, nil
}

// ProtectedRoute returns middleware that rejects requests without a valid
// token, and binds identity and claims to the request context on success.
func (rg *RouteGuard) ProtectedRoute() router.MiddlewareFunc {
	return tokenware.New(tokenware.Config{
		Validator:       tokenValidatorAdapter{guard: rg.guard},
		ErrorHandler:    rg.ErrorHandler,
		AuthScheme:      rg.cfg.GetAuthScheme(),
		ContextKey:      rg.cfg.GetContextKey(),
		TokenLookup:     rg.cfg.GetTokenLookup(),
		ContextEnricher: bindRequestContext,
	})
}

func (rg *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		switch {
		case IsTokenExpiredError(err):
			richErr = ErrTokenExpired
		case IsMalformedError(err):
			richErr = ErrTokenMalformed
		default:
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}
	}

	return rg.translator.Handle(c, richErr)
}

// tokenValidatorAdapter exposes TokenGuard through the middleware's
// validator contract.
type tokenValidatorAdapter struct {
	guard *TokenGuard
}

func (a tokenValidatorAdapter) Validate(ctx context.Context, raw string) (tokenware.Claims, error) {
	claims, err := a.guard.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// bindRequestContext propagates the verified claims and derived identity to
// the standard context so handlers can read them without router types.
func bindRequestContext(ctx context.Context, claims tokenware.Claims) context.Context {
	ctx = WithIdentityContext(ctx, &authIdentity{
		id:    claims.Subject(),
		email: claims.Email(),
	})

	if gc, ok := claims.(Claims); ok {
		ctx = WithClaimsContext(ctx, gc)
	}

	return ctx
}
