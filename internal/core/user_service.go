package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// ComparePassword returns nil when password matches hashed.
func ComparePassword(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := ComparePassword(u.PasswordHash, password); err != nil {
		return nil, notFound("user", username)
	}
	return u, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND is_active = true`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", username)
		}
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	if u.Grants, err = s.grants(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", userID)
		}
		return nil, fmt.Errorf("failed to load user id=%d: %w", userID, err)
	}
	if u.Grants, err = s.grants(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *userService) Create(ctx context.Context, in UserInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		in.Username, in.Email, hash, string(in.Role), active))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *userService) Update(ctx context.Context, userID int, in UserInput) (*User, error) {
	if in.Role != "" && !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	var hash *string
	if in.Password != "" {
		h, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET
			username      = COALESCE(NULLIF($2, ''), username),
			email         = COALESCE(NULLIF($3, ''), email),
			password_hash = COALESCE($4, password_hash),
			role          = COALESCE(NULLIF($5, ''), role),
			is_active     = COALESCE($6, is_active)
		WHERE id = $1
		RETURNING `+userColumns,
		userID, in.Username, in.Email, hash, string(in.Role), in.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", userID)
		}
		return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	if u.Grants, err = s.grants(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Deactivate(ctx context.Context, userID int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_active = false WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("user", userID)
	}
	return nil
}

func (s *userService) SetGrants(ctx context.Context, userID int, grants []Capability, grantedBy int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	if !exists {
		return notFound("user", userID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear grants for user %d: %w", userID, err)
	}
	for _, g := range grants {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_permissions (user_id, module, action, granted_by)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`,
			userID, string(g.Module), string(g.Action), grantedBy); err != nil {
			return fmt.Errorf("failed to grant %s to user %d: %w", g, userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *userService) grants(ctx context.Context, userID int) ([]Capability, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT module, action FROM user_permissions WHERE user_id = $1 ORDER BY module, action`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []Capability
	for rows.Next() {
		var m, a string
		if err := rows.Scan(&m, &a); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		out = append(out, Capability{Module(m), Action(a)})
	}
	return out, rows.Err()
}
