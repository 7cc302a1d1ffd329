package guard

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted identity record.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	FirstName    string     `bun:"first_name" json:"first_name"`
	LastName     string     `bun:"last_name" json:"last_name"`
	Phone        string     `bun:"phone_number" json:"phone_number"`
	ImageURL     string     `bun:"image_url" json:"image_url"`
	Email        string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash string     `bun:"password_hash" json:"-"`
	Active       bool       `bun:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt    *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Authenticatable reports whether the record may hold a session: it must
// exist, be active, and not be soft-deleted.
func (u *User) Authenticatable() bool {
	return u != nil && u.Active && u.DeletedAt == nil
}

// Profile is the outward-facing projection of a User. It never carries the
// password hash or deletion markers.
type Profile struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone_number,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Profile projects the record into its safe representation.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID.String(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		ImageURL:    u.ImageURL,
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
