// Package reporting computes balances and monthly breakdowns for one user.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/storage"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Grouping selects how monthly breakdowns bucket rows.
type Grouping string

const (
	// GroupByMonth merges equal month numbers across years.
	GroupByMonth     Grouping = "month"
	GroupByYearMonth Grouping = "year_month"
)

func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(strings.ToLower(strings.TrimSpace(s))); g {
	case "", GroupByMonth:
		return GroupByMonth, nil
	case GroupByYearMonth:
		return g, nil
	default:
		return "", fmt.Errorf("unknown monthly grouping %q", s)
	}
}

// Store is the read side of storage the reports need.
type Store interface {
	GetCurrency(ctx context.Context, id int64) (core.Currency, error)
	SumByCurrency(ctx context.Context, kind core.Kind, ownerID, currencyID int64) (core.Money, error)
	MonthlyTotals(ctx context.Context, kind core.Kind, ownerID int64, byYear bool) ([]core.MonthlyTotal, error)
}

type Service struct {
	store           Store
	defaultCurrency int64
	grouping        Grouping
}

func NewService(store Store, defaultCurrency int64, grouping Grouping) *Service {
	if grouping == "" {
		grouping = GroupByMonth
	}
	return &Service{
		store:           store,
		defaultCurrency: defaultCurrency,
		grouping:        grouping,
	}
}

// DefaultCurrency returns the currency shown when no selector is given.
func (s *Service) DefaultCurrency(ctx context.Context) (core.Currency, error) {
	c, err := s.store.GetCurrency(ctx, s.defaultCurrency)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Currency{}, fmt.Errorf("default currency %d: %w", s.defaultCurrency, ErrUnknownCurrency)
	}
	return c, err
}

// ResolveCurrency maps the raw currency selector to a currency. An empty
// selector means the default currency.
func (s *Service) ResolveCurrency(ctx context.Context, raw string) (core.Currency, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.DefaultCurrency(ctx)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return core.Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, raw)
	}
	c, err := s.store.GetCurrency(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Currency{}, fmt.Errorf("%w: %d", ErrUnknownCurrency, id)
	}
	if err != nil {
		return core.Currency{}, fmt.Errorf("resolve currency: %w", err)
	}
	return c, nil
}

// ComputeBalance sums userID's expenses and incomes in currencyID. An empty
// ledger yields zero totals.
func (s *Service) ComputeBalance(ctx context.Context, userID, currencyID int64) (core.Balance, error) {
	expense, err := s.store.SumByCurrency(ctx, core.KindExpense, userID, currencyID)
	if err != nil {
		return core.Balance{}, fmt.Errorf("total expense: %w", err)
	}
	income, err := s.store.SumByCurrency(ctx, core.KindIncome, userID, currencyID)
	if err != nil {
		return core.Balance{}, fmt.Errorf("total income: %w", err)
	}
	return core.NewBalance(expense, income), nil
}

// ComputeMonthlyBreakdown totals userID's rows of kind across every currency,
// bucketed by the configured grouping. Order is unspecified.
func (s *Service) ComputeMonthlyBreakdown(ctx context.Context, userID int64, kind core.Kind) ([]core.MonthlyTotal, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("monthly breakdown: unknown kind %q", kind)
	}
	totals, err := s.store.MonthlyTotals(ctx, kind, userID, s.grouping == GroupByYearMonth)
	if err != nil {
		return nil, fmt.Errorf("monthly %s breakdown: %w", kind, err)
	}
	if totals == nil {
		totals = []core.MonthlyTotal{}
	}
	return totals, nil
}

// Summary gathers the balance page data. The three reads run concurrently;
// breakdowns are returned sorted chronologically for display.
func (s *Service) Summary(ctx context.Context, userID int64, currency core.Currency) (core.Summary, error) {
	sum := core.Summary{Currency: currency}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.ComputeBalance(gctx, userID, currency.ID)
		sum.Balance = b
		return err
	})
	g.Go(func() error {
		m, err := s.ComputeMonthlyBreakdown(gctx, userID, core.KindIncome)
		sum.MonthlyIncome = m
		return err
	})
	g.Go(func() error {
		m, err := s.ComputeMonthlyBreakdown(gctx, userID, core.KindExpense)
		sum.MonthlyExpense = m
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Summary failed", "user_id", userID, "currency_id", currency.ID, "error", err)
		return core.Summary{}, err
	}

	core.SortMonthly(sum.MonthlyIncome)
	core.SortMonthly(sum.MonthlyExpense)
	return sum, nil
}
