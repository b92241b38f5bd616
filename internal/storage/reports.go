package storage

import (
	"context"
	"fmt"

	"budget/internal/core"
)

// ledgerTable describes the columns an aggregation reads for one Kind.
type ledgerTable struct {
	table, amount, date string
}

var ledgerTables = map[core.Kind]ledgerTable{
	core.KindExpense: {table: "expenses", amount: "cost_cents", date: "expense_date"},
	core.KindIncome:  {table: "incomes", amount: "amount_cents", date: "income_date"},
}

func tableFor(kind core.Kind) (ledgerTable, error) {
	t, ok := ledgerTables[kind]
	if !ok {
		return ledgerTable{}, fmt.Errorf("unknown ledger kind %q", kind)
	}
	return t, nil
}

// SumByCurrency totals ownerID's rows of kind in currencyID. No rows sum to zero.
func (r *SQLiteRepository) SumByCurrency(ctx context.Context, kind core.Kind, ownerID, currencyID int64) (core.Money, error) {
	t, err := tableFor(kind)
	if err != nil {
		return core.Money{}, err
	}

	var cents int64
	query := `SELECT COALESCE(SUM(` + t.amount + `), 0) FROM ` + t.table + `
		WHERE owner_id = ? AND currency_id = ?`
	if err := r.db.QueryRowContext(ctx, query, ownerID, currencyID).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum %s: %w", t.table, err)
	}
	return core.MoneyFromCents(cents), nil
}

// MonthlyTotals groups ownerID's rows of kind (every currency) by calendar
// month. With byYear false, rows from different years sharing a month number
// fall into one group and Year is left zero. Groups come back in the order
// SQLite produces them.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, kind core.Kind, ownerID int64, byYear bool) ([]core.MonthlyTotal, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	yearExpr, groupBy := "0", "month"
	if byYear {
		yearExpr = "CAST(strftime('%Y', " + t.date + ") AS INTEGER)"
		groupBy = "year, month"
	}
	query := `SELECT ` + yearExpr + ` AS year,
		CAST(strftime('%m', ` + t.date + `) AS INTEGER) AS month,
		SUM(` + t.amount + `) AS total
		FROM ` + t.table + `
		WHERE owner_id = ?
		GROUP BY ` + groupBy

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("monthly %s totals: %w", t.table, err)
	}
	defer rows.Close()

	out := []core.MonthlyTotal{}
	for rows.Next() {
		var (
			mt    core.MonthlyTotal
			cents int64
		)
		if err := rows.Scan(&mt.Year, &mt.Month, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		mt.Total = core.MoneyFromCents(cents)
		out = append(out, mt)
	}
	return out, rows.Err()
}
