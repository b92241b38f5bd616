package reporting

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/storage"
)

type fakeStore struct {
	mu         sync.Mutex
	currencies map[int64]core.Currency
	sums       map[core.Kind]core.Money
	monthly    map[core.Kind][]core.MonthlyTotal
	byYear     []bool
	err        error
}

func (f *fakeStore) GetCurrency(_ context.Context, id int64) (core.Currency, error) {
	c, ok := f.currencies[id]
	if !ok {
		return core.Currency{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) SumByCurrency(_ context.Context, kind core.Kind, _, _ int64) (core.Money, error) {
	if f.err != nil {
		return core.Money{}, f.err
	}
	return f.sums[kind], nil
}

func (f *fakeStore) MonthlyTotals(_ context.Context, kind core.Kind, _ int64, byYear bool) ([]core.MonthlyTotal, error) {
	f.mu.Lock()
	f.byYear = append(f.byYear, byYear)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.monthly[kind], nil
}

func newFake() *fakeStore {
	return &fakeStore{
		currencies: map[int64]core.Currency{
			1: {ID: 1, Name: "Złoty", Code: "PLN"},
			2: {ID: 2, Name: "Euro", Code: "EUR"},
		},
		sums:    map[core.Kind]core.Money{},
		monthly: map[core.Kind][]core.MonthlyTotal{},
	}
}

func TestParseGrouping(t *testing.T) {
	tests := []struct {
		in      string
		want    Grouping
		wantErr bool
	}{
		{"", GroupByMonth, false},
		{"month", GroupByMonth, false},
		{" Year_Month ", GroupByYearMonth, false},
		{"week", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGrouping(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestResolveCurrency(t *testing.T) {
	svc := NewService(newFake(), 1, GroupByMonth)
	ctx := context.Background()

	c, err := svc.ResolveCurrency(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "PLN", c.Code)

	c, err = svc.ResolveCurrency(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Code)

	for _, raw := range []string{"abc", "0", "-1", "99", "1.5"} {
		_, err := svc.ResolveCurrency(ctx, raw)
		assert.ErrorIs(t, err, ErrUnknownCurrency, raw)
	}
}

func TestResolveCurrencyMissingDefault(t *testing.T) {
	svc := NewService(newFake(), 42, GroupByMonth)
	_, err := svc.ResolveCurrency(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestComputeBalanceEmptyLedger(t *testing.T) {
	svc := NewService(newFake(), 1, GroupByMonth)

	b, err := svc.ComputeBalance(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, b.TotalExpense.IsZero())
	assert.True(t, b.TotalIncome.IsZero())
	assert.True(t, b.TotalBalance.IsZero())
}

func TestComputeBalancePropagatesErrors(t *testing.T) {
	store := newFake()
	store.err = errors.New("disk on fire")
	svc := NewService(store, 1, GroupByMonth)

	_, err := svc.ComputeBalance(context.Background(), 7, 1)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestComputeMonthlyBreakdownGroupingFlag(t *testing.T) {
	store := newFake()

	_, err := NewService(store, 1, GroupByMonth).ComputeMonthlyBreakdown(context.Background(), 1, core.KindIncome)
	require.NoError(t, err)
	_, err = NewService(store, 1, GroupByYearMonth).ComputeMonthlyBreakdown(context.Background(), 1, core.KindIncome)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, store.byYear)
}

func TestComputeMonthlyBreakdownEmptyAndInvalid(t *testing.T) {
	svc := NewService(newFake(), 1, GroupByMonth)

	totals, err := svc.ComputeMonthlyBreakdown(context.Background(), 1, core.KindExpense)
	require.NoError(t, err)
	assert.NotNil(t, totals)
	assert.Empty(t, totals)

	_, err = svc.ComputeMonthlyBreakdown(context.Background(), 1, core.Kind("transfer"))
	assert.Error(t, err)
}

func TestSummarySortsBreakdowns(t *testing.T) {
	store := newFake()
	store.sums[core.KindExpense] = core.MoneyFromCents(2000)
	store.sums[core.KindIncome] = core.MoneyFromCents(10000)
	store.monthly[core.KindExpense] = []core.MonthlyTotal{
		{Month: 11, Total: core.MoneyFromCents(100)},
		{Month: 2, Total: core.MoneyFromCents(200)},
	}
	svc := NewService(store, 1, GroupByMonth)

	sum, err := svc.Summary(context.Background(), 1, core.Currency{ID: 1, Code: "PLN"})
	require.NoError(t, err)
	assert.Equal(t, "PLN", sum.Currency.Code)
	assert.Equal(t, "80.00", sum.Balance.TotalBalance.String())
	require.Len(t, sum.MonthlyExpense, 2)
	assert.Equal(t, 2, sum.MonthlyExpense[0].Month)
	assert.Empty(t, sum.MonthlyIncome)
}

func TestSummaryFailsWhenAnyReadFails(t *testing.T) {
	store := newFake()
	store.err = errors.New("boom")
	svc := NewService(store, 1, GroupByMonth)

	_, err := svc.Summary(context.Background(), 1, core.Currency{ID: 1})
	assert.Error(t, err)
}

// Integration against SQLite: the worked examples of the balance page.

func newSQLiteService(t *testing.T, grouping Grouping) (*Service, *storage.SQLiteRepository, core.User) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(context.Background(), core.User{Username: "anna"}, "hash")
	require.NoError(t, err)
	return NewService(repo, 1, grouping), repo, u
}

func mustMoney(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func TestBalanceWorkedExample(t *testing.T) {
	svc, repo, u := newSQLiteService(t, GroupByMonth)
	ctx := context.Background()
	d := core.NewDate(2024, 4, 1)

	for _, cost := range []string{"12.50", "7.50"} {
		_, err := repo.CreateExpense(ctx, core.Expense{
			Name: "x", Cost: mustMoney(t, cost), Date: d,
			Category: core.Category{ID: 1}, Currency: core.Currency{ID: 1}, OwnerID: u.ID,
		})
		require.NoError(t, err)
	}
	_, err := repo.CreateIncome(ctx, core.Income{
		Amount: mustMoney(t, "100.00"), Date: d,
		Source: core.Source{ID: 1}, Currency: core.Currency{ID: 1}, OwnerID: u.ID,
	})
	require.NoError(t, err)

	b, err := svc.ComputeBalance(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "20.00", b.TotalExpense.String())
	assert.Equal(t, "100.00", b.TotalIncome.String())
	assert.Equal(t, "80.00", b.TotalBalance.String())
	assert.True(t, b.TotalBalance.Equal(b.TotalIncome.Sub(b.TotalExpense)))

	other, err := svc.ComputeBalance(ctx, u.ID, 2)
	require.NoError(t, err)
	assert.True(t, other.TotalBalance.IsZero())
}

func TestMonthlyBreakdownMergesYears(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		grouping Grouping
		groups   int
	}{
		{GroupByMonth, 1},
		{GroupByYearMonth, 2},
	} {
		t.Run(string(tc.grouping), func(t *testing.T) {
			svc, repo, u := newSQLiteService(t, tc.grouping)
			for _, in := range []struct {
				amount string
				date   core.Date
			}{
				{"50", core.NewDate(2023, 1, 10)},
				{"30", core.NewDate(2024, 1, 20)},
			} {
				_, err := repo.CreateIncome(ctx, core.Income{
					Amount: mustMoney(t, in.amount), Date: in.date,
					Source: core.Source{ID: 1}, Currency: core.Currency{ID: 1}, OwnerID: u.ID,
				})
				require.NoError(t, err)
			}

			totals, err := svc.ComputeMonthlyBreakdown(ctx, u.ID, core.KindIncome)
			require.NoError(t, err)
			require.Len(t, totals, tc.groups)
			if tc.grouping == GroupByMonth {
				assert.Equal(t, 1, totals[0].Month)
				assert.Equal(t, "80.00", totals[0].Total.String())
			}
		})
	}
}

func TestDeleteLeavesOtherUsersTotals(t *testing.T) {
	svc, repo, anna := newSQLiteService(t, GroupByMonth)
	ctx := context.Background()
	piotr, err := repo.CreateUser(ctx, core.User{Username: "piotr"}, "hash")
	require.NoError(t, err)

	add := func(owner int64, cost string) core.Expense {
		e, err := repo.CreateExpense(ctx, core.Expense{
			Name: "x", Cost: mustMoney(t, cost), Date: core.NewDate(2024, 1, 1),
			Category: core.Category{ID: 1}, Currency: core.Currency{ID: 1}, OwnerID: owner,
		})
		require.NoError(t, err)
		return e
	}
	e := add(anna.ID, "10")
	add(piotr.ID, "25")

	require.NoError(t, repo.DeleteExpense(ctx, anna.ID, e.ID))

	a, err := svc.ComputeBalance(ctx, anna.ID, 1)
	require.NoError(t, err)
	assert.True(t, a.TotalExpense.IsZero())

	p, err := svc.ComputeBalance(ctx, piotr.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "25.00", p.TotalExpense.String())
}
