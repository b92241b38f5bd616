package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

func toOwner(v sql.NullInt64) core.Owner {
	if !v.Valid {
		return core.SharedOwner()
	}
	return core.OwnedBy(v.Int64)
}

func fromOwner(o core.Owner) sql.NullInt64 {
	id, ok := o.UserID()
	return sql.NullInt64{Int64: id, Valid: ok}
}

// ListCurrencies returns every currency ordered by id.
func (r *SQLiteRepository) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, code FROM currencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var out []core.Currency
	for rows.Next() {
		var c core.Currency
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCurrency(ctx context.Context, id int64) (core.Currency, error) {
	var c core.Currency
	err := r.db.QueryRowContext(ctx, `SELECT id, name, code FROM currencies WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Currency{}, ErrNotFound
	}
	if err != nil {
		return core.Currency{}, fmt.Errorf("get currency %d: %w", id, err)
	}
	return c, nil
}

// ListVisibleCategories returns shared categories plus the ones owned by userID.
func (r *SQLiteRepository) ListVisibleCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner_id FROM categories
		WHERE owner_id IS NULL OR owner_id = ?
		ORDER BY owner_id IS NOT NULL, name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c     core.Category
			owner sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &owner); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Owner = toOwner(owner)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetVisibleCategory returns ErrNotFound for ids owned by another user.
func (r *SQLiteRepository) GetVisibleCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	var (
		c     core.Category
		owner sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id FROM categories
		WHERE id = ? AND (owner_id IS NULL OR owner_id = ?)`, id, userID).
		Scan(&c.ID, &c.Name, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	c.Owner = toOwner(owner)
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name, owner_id) VALUES (?, ?)`,
		c.Name, fromOwner(c.Owner))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}

	slog.InfoContext(ctx, "Category saved", "id", c.ID, "name", c.Name, "owner", c.Owner.String())
	return c, nil
}

// ListVisibleSources returns shared sources plus the ones owned by userID.
func (r *SQLiteRepository) ListVisibleSources(ctx context.Context, userID int64) ([]core.Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner_id FROM sources
		WHERE owner_id IS NULL OR owner_id = ?
		ORDER BY owner_id IS NOT NULL, name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []core.Source
	for rows.Next() {
		var (
			s     core.Source
			owner sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &owner); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		s.Owner = toOwner(owner)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetVisibleSource(ctx context.Context, userID, id int64) (core.Source, error) {
	var (
		s     core.Source
		owner sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id FROM sources
		WHERE id = ? AND (owner_id IS NULL OR owner_id = ?)`, id, userID).
		Scan(&s.ID, &s.Name, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Source{}, ErrNotFound
	}
	if err != nil {
		return core.Source{}, fmt.Errorf("get source %d: %w", id, err)
	}
	s.Owner = toOwner(owner)
	return s, nil
}

func (r *SQLiteRepository) CreateSource(ctx context.Context, s core.Source) (core.Source, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO sources (name, owner_id) VALUES (?, ?)`,
		s.Name, fromOwner(s.Owner))
	if err != nil {
		return core.Source{}, fmt.Errorf("create source: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return core.Source{}, fmt.Errorf("source id: %w", err)
	}

	slog.InfoContext(ctx, "Source saved", "id", s.ID, "name", s.Name, "owner", s.Owner.String())
	return s, nil
}
