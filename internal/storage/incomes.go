package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/filter"
)

const incomeColumns = `
	i.id, i.amount_cents, i.income_date, i.owner_id,
	s.id, s.name, s.owner_id,
	cur.id, cur.name, cur.code
	FROM incomes i
	JOIN sources s ON s.id = i.source_id
	JOIN currencies cur ON cur.id = i.currency_id`

func scanIncome(s rowScanner) (core.Income, error) {
	var (
		in    core.Income
		cents int64
		date  string
		owner sql.NullInt64
	)
	if err := s.Scan(&in.ID, &cents, &date, &in.OwnerID,
		&in.Source.ID, &in.Source.Name, &owner,
		&in.Currency.ID, &in.Currency.Name, &in.Currency.Code); err != nil {
		return core.Income{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Income{}, fmt.Errorf("income %d: %w", in.ID, err)
	}
	in.Amount = core.MoneyFromCents(cents)
	in.Date = d
	in.Source.Owner = toOwner(owner)
	return in, nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO incomes (amount_cents, income_date, source_id, currency_id, owner_id)
		VALUES (?, ?, ?, ?, ?)`,
		in.Amount.Cents(), in.Date.String(), in.Source.ID, in.Currency.ID, in.OwnerID)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return core.Income{}, fmt.Errorf("income id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved to SQLite",
		"id", in.ID,
		"amount_cents", in.Amount.Cents(),
		"income_date", in.Date.String(),
		"owner_id", in.OwnerID)

	return in, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, ownerID, id int64) (core.Income, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+incomeColumns+`
		WHERE i.id = ? AND i.owner_id = ?`, id, ownerID)
	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d: %w", id, err)
	}
	return in, nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE incomes
		SET amount_cents = ?, income_date = ?, source_id = ?, currency_id = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?`,
		in.Amount.Cents(), in.Date.String(), in.Source.ID, in.Currency.ID, in.ID, in.OwnerID)
	if err != nil {
		return fmt.Errorf("update income %d: %w", in.ID, err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Income updated", "id", in.ID, "owner_id", in.OwnerID)
	return nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Income deleted", "id", id, "owner_id", ownerID)
	return nil
}

// ListIncomes returns ownerID's incomes narrowed by f, newest first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, ownerID int64, f filter.Income) ([]core.Income, error) {
	c := incomeConditions(ownerID, f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+incomeColumns+c.where()+`
		ORDER BY i.income_date DESC, i.id DESC`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func incomeConditions(ownerID int64, f filter.Income) *conditions {
	c := &conditions{}
	c.add("i.owner_id = ?", ownerID)

	if f.Source != nil {
		if f.Source.Valid {
			c.add(`i.source_id = ? AND i.source_id IN
				(SELECT id FROM sources WHERE owner_id IS NULL OR owner_id = ?)`, f.Source.ID, ownerID)
		} else {
			c.add(matchNothing)
		}
	}
	addIDMatch(c, "i.currency_id", f.Currency)
	addAmountRange(c, "i.amount_cents", f.Amount)
	addDateRange(c, "i.income_date", f.Date)
	return c
}
