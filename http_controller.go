package guard

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AuthController serves the JSON authentication endpoints: login, profile,
// and registration. Every error leaves through the translator so clients
// always see the same envelope.
type AuthController struct {
	Logger     Logger
	Chain      *GuardChain
	Codec      TokenCodec
	Store      IdentityStore
	Repo       RepositoryManager
	Translator *ErrorTranslator
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Chain == nil {
		panic("Missing GuardChain in auth controller...")
	}

	if c.Codec == nil {
		panic("Missing TokenCodec in auth controller...")
	}

	if c.Store == nil {
		panic("Missing IdentityStore in auth controller...")
	}

	if c.Translator == nil {
		c.Translator = NewErrorTranslator(c.Logger)
	}

	return c
}

func WithControllerChain(chain *GuardChain) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Chain = chain
		return c
	}
}

func WithControllerCodec(codec TokenCodec) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Codec = codec
		return c
	}
}

func WithControllerStore(store IdentityStore) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerTranslator(translator *ErrorTranslator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Translator = translator
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

// RegisterRoutes mounts the endpoints. The protect middleware wraps the
// routes that require a verified token.
func (a *AuthController) RegisterRoutes(group RouteRegistrar, protect router.MiddlewareFunc) {
	group.Post("/login", a.Login)
	group.Post("/register", a.Register)
	group.Get("/profile", a.Profile, protect)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType,omitempty"`
}

// Login authenticates credentials and issues an access token.
func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.Translator.Handle(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.Translator.Handle(ctx, validationError(err))
	}

	result := a.Chain.Check(ctx.Context(), StageCredential, GuardInput{
		Email:    payload.Email,
		Password: payload.Password,
	})

	if result.State != StateAuthenticated {
		return a.Translator.Handle(ctx, result.Reason)
	}

	token, err := a.Codec.Sign(result.Identity)
	if err != nil {
		a.Logger.Error("Login token signing failed", "error", err)
		return a.Translator.Handle(ctx, err)
	}

	if err := a.Store.TrackSuccessfulLogin(ctx.Context(), result.Identity.ID()); err != nil {
		a.Logger.Warn("Login tracking failed", "identity", result.Identity.ID(), "error", err)
	}

	return ctx.JSON(router.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
	})
}

// Register creates a new identity.
func (a *AuthController) Register(ctx router.Context) error {
	if a.Repo == nil {
		return a.Translator.Handle(ctx, errors.New("registration is not configured", errors.CategoryInternal))
	}

	payload := new(RegisterUserMessage)

	if err := ctx.Bind(payload); err != nil {
		return a.Translator.Handle(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.Translator.Handle(ctx, validationError(err))
	}

	handler := NewRegisterUserHandler(a.Repo)
	user, err := handler.Execute(ctx.Context(), *payload)
	if err != nil {
		return a.Translator.Handle(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, user.Profile())
}

// Profile returns the authenticated identity's safe projection.
func (a *AuthController) Profile(ctx router.Context) error {
	identity, ok := IdentityFromContext(ctx.Context())
	if !ok {
		return a.Translator.Handle(ctx, ErrTokenMalformed)
	}

	user, err := a.Store.FindByID(ctx.Context(), identity.ID())
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return a.Translator.Handle(ctx, ErrSubjectNotEligible)
		}
		return a.Translator.Handle(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user.Profile())
}

// validationError wraps an ozzo validation failure with per field details
// for the envelope.
func validationError(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, "validation failed").
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": FormatValidationErrorToMap(err),
		})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["payload"] = err.Error()
	}

	return out
}
