package core

import (
	"context"
	"time"
)

// Role is a user's coarse permission level.
type Role string

const (
	RoleSupervisor Role = "SUPERVISOR"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSupervisor || r == RoleManager || r == RoleAdmin
}

// User is an account that can sign in.
type User struct {
	ID           int          `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role"`
	IsActive     bool         `json:"is_active"`
	Grants       []Capability `json:"grants"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Principal is the authenticated caller of one request. It is derived from the
// session token and passed explicitly into every service call that needs it.
type Principal struct {
	UserID   int
	Username string
	Role     Role
	Grants   []Capability
}

// UserInput holds the editable fields of a user. An empty Password leaves the
// stored hash unchanged on update.
type UserInput struct {
	Username string
	Email    string
	Password string
	Role     Role
	IsActive *bool
}

// UserService manages accounts, credentials and per-user capability grants.
type UserService interface {
	// Authenticate returns the active user whose password matches, or ErrNotFound.
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, in UserInput) (*User, error)
	Update(ctx context.Context, userID int, in UserInput) (*User, error)
	Deactivate(ctx context.Context, userID int) error
	// SetGrants replaces the user's extra capabilities.
	SetGrants(ctx context.Context, userID int, grants []Capability, grantedBy int) error
}
