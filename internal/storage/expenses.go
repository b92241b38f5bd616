package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budget/internal/core"
	"budget/internal/filter"
)

const expenseColumns = `
	e.id, e.name, e.cost_cents, e.expense_date, e.owner_id,
	c.id, c.name, c.owner_id,
	cur.id, cur.name, cur.code
	FROM expenses e
	JOIN categories c ON c.id = e.category_id
	JOIN currencies cur ON cur.id = e.currency_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e     core.Expense
		cents int64
		date  string
		owner sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Name, &cents, &date, &e.OwnerID,
		&e.Category.ID, &e.Category.Name, &owner,
		&e.Currency.ID, &e.Currency.Name, &e.Currency.Code); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	e.Cost = core.MoneyFromCents(cents)
	e.Date = d
	e.Category.Owner = toOwner(owner)
	return e, nil
}

// CreateExpense inserts e for e.OwnerID and returns it with its new id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (name, cost_cents, expense_date, category_id, currency_id, owner_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, e.Cost.Cents(), e.Date.String(), e.Category.ID, e.Currency.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"name", e.Name,
		"cost_cents", e.Cost.Cents(),
		"expense_date", e.Date.String(),
		"owner_id", e.OwnerID)

	return e, nil
}

// GetExpense returns the expense only if ownerID owns it.
func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+`
		WHERE e.id = ? AND e.owner_id = ?`, id, ownerID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// UpdateExpense rewrites the mutable fields; the owner never changes.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET name = ?, cost_cents = ?, expense_date = ?, category_id = ?, currency_id = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?`,
		e.Name, e.Cost.Cents(), e.Date.String(), e.Category.ID, e.Currency.ID, e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID, "owner_id", e.OwnerID)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "owner_id", ownerID)
	return nil
}

// ListExpenses returns ownerID's expenses narrowed by f, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID int64, f filter.Expense) ([]core.Expense, error) {
	c := expenseConditions(ownerID, f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+c.where()+`
		ORDER BY e.expense_date DESC, e.id DESC`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func expenseConditions(ownerID int64, f filter.Expense) *conditions {
	c := &conditions{}
	c.add("e.owner_id = ?", ownerID)

	if f.Category != nil {
		if f.Category.Valid {
			c.add(`e.category_id = ? AND e.category_id IN
				(SELECT id FROM categories WHERE owner_id IS NULL OR owner_id = ?)`, f.Category.ID, ownerID)
		} else {
			c.add(matchNothing)
		}
	}
	addIDMatch(c, "e.currency_id", f.Currency)
	addAmountRange(c, "e.cost_cents", f.Cost)
	addDateRange(c, "e.expense_date", f.Date)
	if f.Name != nil {
		c.add(foldFunc+`(e.name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(*f.Name))+"%")
	}
	return c
}

func addIDMatch(c *conditions, column string, m *filter.IDMatch) {
	if m == nil {
		return
	}
	if !m.Valid {
		c.add(matchNothing)
		return
	}
	c.add(column+" = ?", m.ID)
}

func addAmountRange(c *conditions, column string, r filter.Range[filter.Amount]) {
	if r.Exact != nil {
		if cents, ok := r.Exact.ExactCents(); ok {
			c.add(column+" = ?", cents)
		} else {
			c.add(matchNothing)
		}
	}
	if r.After != nil {
		c.add(column+" > ?", r.After.CentsAbove())
	}
	if r.Before != nil {
		c.add(column+" < ?", r.Before.CentsBelow())
	}
}

func addDateRange(c *conditions, column string, r filter.Range[core.Date]) {
	if r.Exact != nil {
		c.add(column+" = ?", r.Exact.String())
	}
	if r.After != nil {
		c.add(column+" > ?", r.After.String())
	}
	if r.Before != nil {
		c.add(column+" < ?", r.Before.String())
	}
}

// escapeLike neutralises LIKE wildcards so the needle matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
