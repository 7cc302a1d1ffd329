package guard_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-guard"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestController(verifier guard.CredentialVerifier, codec guard.TokenCodec, store guard.IdentityStore) *guard.AuthController {
	chain := guard.NewGuardChain(guard.NewCredentialGuard(verifier))

	return guard.NewAuthController(
		guard.WithControllerChain(chain),
		guard.WithControllerCodec(codec),
		guard.WithControllerStore(store),
	)
}

func TestAuthController_Login(t *testing.T) {
	cfg := guard.SimpleConfig{SigningKey: "controller-test-key", TokenTTL: "1h"}
	codec, err := guard.NewTokenCodec(cfg, nil)
	require.NoError(t, err)

	t.Run("returns access token for valid credentials", func(t *testing.T) {
		identity := &MockIdentity{}
		identity.On("ID").Return("user-123")
		identity.On("Email").Return("user@example.com")

		verifier := &MockCredentialVerifier{}
		verifier.On("Validate", mock.Anything, "user@example.com", "averylongpassword").
			Return(identity, nil)

		store := &MockIdentityStore{}
		store.On("TrackSuccessfulLogin", mock.Anything, "user-123").Return(nil)

		controller := newTestController(verifier, codec, store)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*guard.LoginRequest)
			payload.Email = "user@example.com"
			payload.Password = "averylongpassword"
		}).Return(nil)
		mockCtx.On("JSON", router.StatusOK, mock.MatchedBy(func(body any) bool {
			resp, ok := body.(guard.LoginResponse)
			return ok && resp.AccessToken != "" && resp.TokenType == "Bearer"
		})).Return(nil)

		err := controller.Login(mockCtx)

		require.NoError(t, err)
		verifier.AssertExpectations(t)
		store.AssertExpectations(t)
		mockCtx.AssertExpectations(t)
	})

	t.Run("login succeeds even when tracking fails", func(t *testing.T) {
		identity := &MockIdentity{}
		identity.On("ID").Return("user-123")
		identity.On("Email").Return("user@example.com")

		verifier := &MockCredentialVerifier{}
		verifier.On("Validate", mock.Anything, "user@example.com", "averylongpassword").
			Return(identity, nil)

		store := &MockIdentityStore{}
		store.On("TrackSuccessfulLogin", mock.Anything, "user-123").Return(assert.AnError)

		controller := newTestController(verifier, codec, store)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*guard.LoginRequest)
			payload.Email = "user@example.com"
			payload.Password = "averylongpassword"
		}).Return(nil)
		mockCtx.On("JSON", router.StatusOK, mock.Anything).Return(nil)

		err := controller.Login(mockCtx)

		require.NoError(t, err)
	})

	t.Run("rejected credentials produce 401 envelope", func(t *testing.T) {
		verifier := &MockCredentialVerifier{}
		verifier.On("Validate", mock.Anything, "user@example.com", "wrong-password").
			Return(nil, guard.ErrInvalidCredentials)

		store := &MockIdentityStore{}

		controller := newTestController(verifier, codec, store)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Path").Return("/auth/login")
		mockCtx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*guard.LoginRequest)
			payload.Email = "user@example.com"
			payload.Password = "wrong-password"
		}).Return(nil)
		mockCtx.On("JSON", router.StatusUnauthorized, mock.MatchedBy(func(body any) bool {
			envelope, ok := body.(guard.ErrorEnvelope)
			return ok && envelope.Message == "the credentials provided are invalid"
		})).Return(nil)

		err := controller.Login(mockCtx)

		require.NoError(t, err)
		store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
		mockCtx.AssertExpectations(t)
	})

	t.Run("invalid payload produces 400 envelope with field details", func(t *testing.T) {
		verifier := &MockCredentialVerifier{}
		store := &MockIdentityStore{}

		controller := newTestController(verifier, codec, store)

		mockCtx := new(MockContext)
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Path").Return("/auth/login")
		mockCtx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*guard.LoginRequest)
			payload.Email = "not-an-email"
			payload.Password = ""
		}).Return(nil)
		mockCtx.On("JSON", router.StatusBadRequest, mock.MatchedBy(func(body any) bool {
			envelope, ok := body.(guard.ErrorEnvelope)
			if !ok || envelope.ErrorDetails == nil {
				return false
			}
			fields, ok := envelope.ErrorDetails.(map[string]string)
			return ok && fields["email"] != "" && fields["password"] != ""
		})).Return(nil)

		err := controller.Login(mockCtx)

		require.NoError(t, err)
		verifier.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bind failure produces 400 envelope", func(t *testing.T) {
		verifier := &MockCredentialVerifier{}
		store := &MockIdentityStore{}

		controller := newTestController(verifier, codec, store)

		mockCtx := new(MockContext)
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Path").Return("/auth/login")
		mockCtx.On("Bind", mock.Anything).Return(assert.AnError)
		mockCtx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		err := controller.Login(mockCtx)

		require.NoError(t, err)
	})
}

func TestAuthController_Register(t *testing.T) {
	cfg := guard.SimpleConfig{SigningKey: "controller-test-key", TokenTTL: "1h"}
	codec, err := guard.NewTokenCodec(cfg, nil)
	require.NoError(t, err)

	db := setupTestDB(t)
	repo := guard.NewRepositoryManager(db)

	controller := guard.NewAuthController(
		guard.WithControllerChain(guard.NewGuardChain(guard.NewCredentialGuard(&MockCredentialVerifier{}))),
		guard.WithControllerCodec(codec),
		guard.WithControllerStore(repo.Users()),
		guard.WithControllerRepo(repo),
	)

	bindPayload := func(email string) func(mock.Arguments) {
		return func(args mock.Arguments) {
			payload := args.Get(0).(*guard.RegisterUserMessage)
			payload.FirstName = "Ada"
			payload.LastName = "Lovelace"
			payload.Email = email
			payload.Password = "averylongpassword"
		}
	}

	t.Run("creates identity and returns its projection", func(t *testing.T) {
		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Bind", mock.Anything).Run(bindPayload("ada@example.com")).Return(nil)
		mockCtx.On("JSON", fiber.StatusCreated, mock.MatchedBy(func(body any) bool {
			profile, ok := body.(guard.Profile)
			return ok && profile.Email == "ada@example.com" && profile.ID != ""
		})).Return(nil)

		err := controller.Register(mockCtx)

		require.NoError(t, err)
		mockCtx.AssertExpectations(t)

		user, err := repo.Users().FindByEmail(context.Background(), "ada@example.com", false)
		require.NoError(t, err)
		assert.True(t, user.Authenticatable())
	})

	t.Run("duplicate email yields 409 with the generic conflict message", func(t *testing.T) {
		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Path").Return("/auth/register")
		mockCtx.On("Bind", mock.Anything).Run(bindPayload("ada@example.com")).Return(nil)
		mockCtx.On("JSON", router.StatusConflict, mock.MatchedBy(func(body any) bool {
			envelope, ok := body.(guard.ErrorEnvelope)
			return ok && envelope.Message == "Resource already exists or conflicts with existing data."
		})).Return(nil)

		err := controller.Register(mockCtx)

		require.NoError(t, err)
		mockCtx.AssertExpectations(t)
	})

	t.Run("short password yields 400 with field details", func(t *testing.T) {
		mockCtx := new(MockContext)
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Path").Return("/auth/register")
		mockCtx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*guard.RegisterUserMessage)
			payload.FirstName = "Ada"
			payload.LastName = "Lovelace"
			payload.Email = "ada2@example.com"
			payload.Password = "short"
		}).Return(nil)
		mockCtx.On("JSON", router.StatusBadRequest, mock.MatchedBy(func(body any) bool {
			envelope, ok := body.(guard.ErrorEnvelope)
			if !ok {
				return false
			}
			fields, ok := envelope.ErrorDetails.(map[string]string)
			return ok && fields["password"] != ""
		})).Return(nil)

		err := controller.Register(mockCtx)

		require.NoError(t, err)
	})

	t.Run("unconfigured repository yields 500", func(t *testing.T) {
		bare := guard.NewAuthController(
			guard.WithControllerChain(guard.NewGuardChain(guard.NewCredentialGuard(&MockCredentialVerifier{}))),
			guard.WithControllerCodec(codec),
			guard.WithControllerStore(&MockIdentityStore{}),
		)

		mockCtx := new(MockContext)
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Path").Return("/auth/register")
		mockCtx.On("JSON", router.StatusInternalServerError, mock.Anything).Return(nil)

		err := bare.Register(mockCtx)

		require.NoError(t, err)
	})
}

func TestAuthController_Profile(t *testing.T) {
	cfg := guard.SimpleConfig{SigningKey: "controller-test-key", TokenTTL: "1h"}
	codec, err := guard.NewTokenCodec(cfg, nil)
	require.NoError(t, err)

	verifier := &MockCredentialVerifier{}

	t.Run("returns safe projection for authenticated identity", func(t *testing.T) {
		user := testUser(t, "irrelevant")

		store := &MockIdentityStore{}
		store.On("FindByID", mock.Anything, user.ID.String()).Return(user, nil)

		controller := newTestController(verifier, codec, store)

		identity := &MockIdentity{}
		identity.On("ID").Return(user.ID.String())
		reqCtx := guard.WithIdentityContext(context.Background(), identity)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(reqCtx)
		mockCtx.On("JSON", router.StatusOK, mock.MatchedBy(func(body any) bool {
			profile, ok := body.(guard.Profile)
			return ok && profile.ID == user.ID.String() && profile.Email == user.Email
		})).Return(nil)

		err := controller.Profile(mockCtx)

		require.NoError(t, err)
		store.AssertExpectations(t)
		mockCtx.AssertExpectations(t)
	})

	t.Run("deleted subject produces 401 envelope", func(t *testing.T) {
		store := &MockIdentityStore{}
		store.On("FindByID", mock.Anything, "gone").Return(nil, repository.NewRecordNotFound())

		controller := newTestController(verifier, codec, store)

		identity := &MockIdentity{}
		identity.On("ID").Return("gone")
		reqCtx := guard.WithIdentityContext(context.Background(), identity)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(reqCtx)
		mockCtx.On("Method").Return("GET")
		mockCtx.On("Path").Return("/auth/profile")
		mockCtx.On("JSON", router.StatusUnauthorized, mock.MatchedBy(func(body any) bool {
			envelope, ok := body.(guard.ErrorEnvelope)
			return ok && envelope.Message == "token subject is no longer eligible"
		})).Return(nil)

		err := controller.Profile(mockCtx)

		require.NoError(t, err)
		store.AssertExpectations(t)
		mockCtx.AssertExpectations(t)
	})

	t.Run("storage failure surfaces as 500 database envelope", func(t *testing.T) {
		store := &MockIdentityStore{}
		store.On("FindByID", mock.Anything, "flaky").Return(nil, sql.ErrConnDone)

		controller := newTestController(verifier, codec, store)

		identity := &MockIdentity{}
		identity.On("ID").Return("flaky")
		reqCtx := guard.WithIdentityContext(context.Background(), identity)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(reqCtx)
		mockCtx.On("Method").Return("GET")
		mockCtx.On("Path").Return("/auth/profile")
		mockCtx.On("JSON", router.StatusInternalServerError, mock.MatchedBy(func(body any) bool {
			envelope, ok := body.(guard.ErrorEnvelope)
			return ok && envelope.Message == "A database error occurred."
		})).Return(nil)

		err := controller.Profile(mockCtx)

		require.NoError(t, err)
		store.AssertExpectations(t)
		mockCtx.AssertExpectations(t)
	})

	t.Run("missing identity context produces 401 envelope", func(t *testing.T) {
		store := &MockIdentityStore{}

		controller := newTestController(verifier, codec, store)

		mockCtx := new(MockContext)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Method").Return("GET")
		mockCtx.On("Path").Return("/auth/profile")
		mockCtx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

		err := controller.Profile(mockCtx)

		require.NoError(t, err)
	})
}

func TestNewAuthController_Panics(t *testing.T) {
	assert.Panics(t, func() {
		guard.NewAuthController()
	})
}
