package guard

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var trackSuccessfulLoginSQL = `UPDATE "users" AS "usr"
SET
	"last_login_at" = ?
WHERE
	("usr".id = ?)
	AND "usr"."deleted_at" IS NULL;`

var softDeleteUserSQL = `UPDATE "users" AS "usr"
SET
	"deleted_at" = ?,
	"is_active" = FALSE
WHERE
	("usr".id = ?)
	AND "usr"."deleted_at" IS NULL
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string, includeDeleted bool) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, id string) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id string) error

	SoftDelete(ctx context.Context, id uuid.UUID) error
	SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ IdentityStore                = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string { return "email" },
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email, includeDeleted)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string, includeDeleted bool) (*User, error) {
	record := &User{}
	q := tx.NewSelect().Model(record)

	if includeDeleted {
		q.WhereAllWithDeleted()
	}

	err := q.
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id,
			})
	}

	return a.Repository.GetByID(ctx, uid.String())
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, id string) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, id)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id string) error {
	// NOTE: Raw SQL so the update does not touch updated_at.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(trackSuccessfulLoginSQL, loggedInAt, id).Exec(ctx)

	return err
}

func (a *users) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return a.SoftDeleteTx(ctx, a.db, id)
}

func (a *users) SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, tx, softDeleteUserSQL, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
