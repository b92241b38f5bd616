package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/filter"
	"budget/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc   *LedgerService
	repo  *storage.SQLiteRepository
	pub   *recordingPublisher
	anna  core.User
	piotr core.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, pub, nil)
	t.Cleanup(func() { svc.Close() })

	ctx := context.Background()
	anna, err := repo.CreateUser(ctx, core.User{Username: "anna"}, "hash")
	require.NoError(t, err)
	piotr, err := repo.CreateUser(ctx, core.User{Username: "piotr"}, "hash")
	require.NoError(t, err)

	return fixture{svc: svc, repo: repo, pub: pub, anna: anna, piotr: piotr}
}

func expense(t *testing.T, cost string, category int64) core.Expense {
	t.Helper()
	m, err := core.ParseMoney(cost)
	require.NoError(t, err)
	return core.Expense{
		Name:     "Zakupy",
		Cost:     m,
		Date:     core.NewDate(2024, 6, 1),
		Category: core.Category{ID: category},
		Currency: core.Currency{ID: 1},
	}
}

func TestNewLedgerServiceDefaults(t *testing.T) {
	svc := NewLedgerService(nil, nil, nil)
	require.NotNil(t, svc)
	assert.IsType(t, events.NopPublisher{}, svc.publisher)
	assert.NoError(t, svc.Close())
}

func TestCreateExpenseSetsOwnerAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := expense(t, "42.10", 1)
	e.OwnerID = f.piotr.ID // ignored
	created, err := f.svc.CreateExpense(ctx, f.anna.ID, e)
	require.NoError(t, err)
	assert.Equal(t, f.anna.ID, created.OwnerID)
	assert.Equal(t, "Jedzenie", created.Category.Name)

	_, err = f.repo.GetExpense(ctx, f.piotr.ID, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.ExpenseCreated, f.pub.events[0].Type)
	assert.Equal(t, created.ID, f.pub.events[0].EntityID)
	assert.Equal(t, f.anna.ID, f.pub.events[0].OwnerID)
}

func TestCreateExpenseRejectsForeignCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private, err := f.svc.CreateCategory(ctx, f.piotr.ID, "Piotr only")
	require.NoError(t, err)

	_, err = f.svc.CreateExpense(ctx, f.anna.ID, expense(t, "10", private.ID))
	var fe core.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "category")
	assert.Empty(t, f.pub.events)

	_, err = f.svc.CreateExpense(ctx, f.piotr.ID, expense(t, "10", private.ID))
	assert.NoError(t, err)
}

func TestCreateExpenseCollectsFieldErrors(t *testing.T) {
	f := newFixture(t)
	e := core.Expense{Currency: core.Currency{ID: 99}}

	_, err := f.svc.CreateExpense(context.Background(), f.anna.ID, e)
	var fe core.FieldErrors
	require.ErrorAs(t, err, &fe)
	for _, field := range []string{"name", "cost", "expense_date", "category", "currency"} {
		assert.Contains(t, fe, field)
	}
}

func TestUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateExpense(ctx, f.anna.ID, expense(t, "10", 1))
	require.NoError(t, err)

	upd := created
	upd.Name = "Obiad"
	_, err = f.svc.UpdateExpense(ctx, f.piotr.ID, upd)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, f.piotr.ID, created.ID), storage.ErrNotFound)

	got, err := f.svc.UpdateExpense(ctx, f.anna.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "Obiad", got.Name)

	require.NoError(t, f.svc.DeleteExpense(ctx, f.anna.ID, created.ID))
	list, err := f.svc.ListExpenses(ctx, f.anna.ID, filter.Expense{})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t,
		[]events.Type{events.ExpenseCreated, events.ExpenseUpdated, events.ExpenseDeleted},
		f.pub.types())
}

func TestIncomeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := core.Income{
		Amount:   core.MoneyFromCents(500000),
		Date:     core.NewDate(2024, 1, 31),
		Source:   core.Source{ID: 1},
		Currency: core.Currency{ID: 2},
	}
	created, err := f.svc.CreateIncome(ctx, f.anna.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "EUR", created.Currency.Code)

	created.Source = core.Source{ID: 404}
	_, err = f.svc.UpdateIncome(ctx, f.anna.ID, created)
	var fe core.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "source")

	require.NoError(t, f.svc.DeleteIncome(ctx, f.anna.ID, created.ID))
	_, err = f.svc.GetIncome(ctx, f.anna.ID, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, []events.Type{events.IncomeCreated, events.IncomeDeleted}, f.pub.types())
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	created, err := f.svc.CreateExpense(context.Background(), f.anna.ID, expense(t, "1", 1))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestChoicesAndTaxonomy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSource(ctx, f.anna.ID, "Freelance")
	require.NoError(t, err)
	_, err = f.svc.CreateCategory(ctx, f.anna.ID, "  ")
	var fe core.FieldErrors
	require.ErrorAs(t, err, &fe)

	ch, err := f.svc.Choices(ctx, f.anna.ID)
	require.NoError(t, err)
	assert.Len(t, ch.Categories, 6)
	assert.Len(t, ch.Sources, 4)
	assert.Len(t, ch.Currencies, 4)

	other, err := f.svc.Choices(ctx, f.piotr.ID)
	require.NoError(t, err)
	assert.Len(t, other.Sources, 3)
}

func TestChoicesRefreshAfterOwnWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.svc.Choices(ctx, f.anna.ID)
	require.NoError(t, err)
	require.Len(t, before.Categories, 6)

	_, err = f.svc.CreateCategory(ctx, f.anna.ID, "Rower")
	require.NoError(t, err)

	after, err := f.svc.Choices(ctx, f.anna.ID)
	require.NoError(t, err)
	assert.Len(t, after.Categories, 7)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.UpdateProfile(ctx, f.anna.ID, core.User{Username: "anna", FirstName: "Anna", Email: "anna@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.FirstName)

	_, err = f.svc.UpdateProfile(ctx, f.anna.ID, core.User{Username: "piotr"})
	var fe core.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "username")

	_, err = f.svc.UpdateProfile(ctx, f.anna.ID, core.User{Username: "anna", Email: "not-an-email"})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")

	got, err := f.svc.Profile(ctx, f.anna.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", got.Email)
}
