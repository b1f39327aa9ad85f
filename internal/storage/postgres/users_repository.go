package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, password_hash, is_admin, created_at, updated_at`

// UserRepository implements users.Repository.
type UserRepository struct {
	db queryer
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user *users.User, err error) {
	defer func(start time.Time) { observe("users.find_by_email", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (user *users.User, err error) {
	defer func(start time.Time) { observe("users.find_by_id", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (user *users.User, err error) {
	defer func(start time.Time) { observe("users.create", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `
INSERT INTO users (id, name, email, password_hash, is_admin)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		params.ID, params.Name, params.Email, params.PasswordHash, params.IsAdmin,
	)
	user, err = scanUser(row)
	if uniqueViolation(err, usersEmailKey) {
		return nil, users.ErrEmailTaken
	}
	return user, err
}

func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("users.delete", start, err) }(time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) (user *users.User, err error) {
	defer func(start time.Time) { observe("users.set_admin", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `
UPDATE users SET is_admin = $2, updated_at = now()
 WHERE id = $1
RETURNING `+userColumns,
		id, isAdmin,
	)
	return scanUser(row)
}

func scanUser(row rowScanner) (*users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
