package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

// User represents a registered user.
// swagger:model User
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Admin     bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`

	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
}

// NewUser returns a new User. ID is set by the repository on create.
func NewUser(email, name string, admin bool, createdAt time.Time) *User {
	return &User{
		Email:     email,
		Name:      name,
		Admin:     admin,
		CreatedAt: createdAt,
	}
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID int64, email string, admin bool, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user's
// identity and whether the token carries the admin role.
type TokenVerifier interface {
	Verify(token string) (userID int64, admin bool, err error)
}

// UserRepository defines storage operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, ids []int64, params PaginationParams) ([]*User, int, error)
	Delete(ctx context.Context, id int64) error
}

// UserService is the user directory: registration, login, and the admin
// user management surface.
type UserService interface {
	Register(ctx context.Context, email, name, password string) (*User, error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	GetByID(ctx context.Context, id int64) (*User, error)
	ListAdmin(ctx context.Context, ids []int64, params PaginationParams) ([]*User, int, error)
	DeleteAdmin(ctx context.Context, id int64) error
}
