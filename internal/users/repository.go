package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, phone, password_hash, role, created_at, updated_at`

// Create inserts a user; a taken email yields shared.ErrDuplicateKey.
func (r *PGRepository) Create(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO users (id, username, email, phone, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.Phone, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return shared.MapUniqueViolation(err, "email "+u.Email)
	}
	return nil
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(email))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// List returns every user ordered by creation.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the number of accounts.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

// Update writes the profile fields and role.
func (r *PGRepository) Update(ctx context.Context, u User) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET username = $2, email = $3, phone = $4, role = $5, updated_at = $6 WHERE id = $1`,
		u.ID, u.Username, u.Email, u.Phone, u.Role, u.UpdatedAt)
	if err != nil {
		return shared.MapUniqueViolation(err, "email "+u.Email)
	}
	if tag.RowsAffected() == 0 {
		return notFound(u.ID)
	}
	return nil
}

// SetPassword replaces the password hash.
func (r *PGRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// Delete removes a user.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *PGRepository) one(ctx context.Context, sql string, arg any) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user: %w", shared.ErrNotFound)
	}
	return u, err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func notFound(id uuid.UUID) error {
	return fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
}

var _ Repository = (*PGRepository)(nil)
