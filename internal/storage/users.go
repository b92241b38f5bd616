package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
)

const userColumns = `u.id, u.username, u.first_name, u.last_name, u.email`

func scanUser(s rowScanner, extra ...any) (core.User, error) {
	var u core.User
	dest := append([]any{&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email}, extra...)
	err := s.Scan(dest...)
	return u, err
}

// CreateUser stores u with the given password hash. A taken username yields ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, first_name, last_name, email, password_hash)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.FirstName, u.LastName, u.Email, passwordHash)
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("user %q: %w", u.Username, ErrConflict)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetCredentials returns the user and its password hash for login.
func (r *SQLiteRepository) GetCredentials(ctx context.Context, username string) (core.User, string, error) {
	var hash string
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, u.password_hash FROM users u WHERE u.username = ?`, username), &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("get credentials: %w", err)
	}
	return u, hash, nil
}

// UpdateUser changes the profile fields of u.ID.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = ?, first_name = ?, last_name = ?, email = ?
		WHERE id = ?`, u.Username, u.FirstName, u.LastName, u.Email, u.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", u.Username, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepository) SetPasswordHash(ctx context.Context, userID int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("set password for user %d: %w", userID, err)
	}
	return affectedOrNotFound(res)
}

// CreateSession stores an opaque login token.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, now, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now.Unix(), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SessionUser resolves a token that has not expired at now.
func (r *SQLiteRepository) SessionUser(ctx context.Context, token string, now time.Time) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`, token, now.Unix()))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("session user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions prunes tokens that expired before now.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
