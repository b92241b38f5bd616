package core

import "sort"

// Kind selects which ledger a breakdown aggregates.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Balance is the per-currency summary of a user's ledger.
type Balance struct {
	TotalExpense Money
	TotalIncome  Money
	TotalBalance Money
}

// NewBalance rounds both totals to two decimals and derives the balance from
// the rounded values, so TotalBalance == TotalIncome - TotalExpense exactly.
func NewBalance(totalExpense, totalIncome Money) Balance {
	exp := totalExpense.Round2()
	inc := totalIncome.Round2()
	return Balance{
		TotalExpense: exp,
		TotalIncome:  inc,
		TotalBalance: inc.Sub(exp).Round2(),
	}
}

// MonthlyTotal is one group of a monthly breakdown. Year is zero when the
// breakdown groups by month number only.
type MonthlyTotal struct {
	Year  int
	Month int // 1-12
	Total Money
}

// SortMonthly orders totals chronologically. Breakdowns come back in
// aggregation order; callers that display them in sequence sort first.
func SortMonthly(totals []MonthlyTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Year != totals[j].Year {
			return totals[i].Year < totals[j].Year
		}
		return totals[i].Month < totals[j].Month
	})
}

// Summary is everything the balance page shows.
type Summary struct {
	Currency       Currency
	Balance        Balance
	MonthlyIncome  []MonthlyTotal
	MonthlyExpense []MonthlyTotal
}
