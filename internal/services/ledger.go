package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/filter"
	"budget/internal/log"
	"budget/internal/storage"
)

// LedgerService validates ledger writes against what the acting user may
// reference, persists them and announces the change.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher events.Publisher
	logger    *log.Logger
	now       func() time.Time

	// choices caches form options per user; own writes invalidate it.
	choices *cache.LRU[Choices]
}

const (
	choicesCacheSize = 256
	choicesCacheTTL  = 5 * time.Minute
)

func NewLedgerService(storage *storage.SQLiteRepository, publisher events.Publisher, logger *log.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       time.Now,
		choices:   cache.NewLRU[Choices](choicesCacheSize, choicesCacheTTL),
	}
}

// checkReference maps a missing or foreign reference to a field error.
func checkReference(fe core.FieldErrors, field, msg string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		fe.Add(field, msg)
		return nil
	}
	return err
}

func (s *LedgerService) resolveExpense(ctx context.Context, userID int64, e *core.Expense) error {
	fe := core.FieldErrors{}
	if err := e.Validate(); err != nil {
		var vfe core.FieldErrors
		if !errors.As(err, &vfe) {
			return err
		}
		fe = vfe
	}

	if _, bad := fe["category"]; !bad {
		c, err := s.storage.GetVisibleCategory(ctx, userID, e.Category.ID)
		if err := checkReference(fe, "category", "select a valid category", err); err != nil {
			return err
		}
		e.Category = c
	}
	if _, bad := fe["currency"]; !bad {
		c, err := s.storage.GetCurrency(ctx, e.Currency.ID)
		if err := checkReference(fe, "currency", "select a valid currency", err); err != nil {
			return err
		}
		e.Currency = c
	}
	e.OwnerID = userID
	return fe.Err()
}

func (s *LedgerService) resolveIncome(ctx context.Context, userID int64, in *core.Income) error {
	fe := core.FieldErrors{}
	if err := in.Validate(); err != nil {
		var vfe core.FieldErrors
		if !errors.As(err, &vfe) {
			return err
		}
		fe = vfe
	}

	if _, bad := fe["source"]; !bad {
		src, err := s.storage.GetVisibleSource(ctx, userID, in.Source.ID)
		if err := checkReference(fe, "source", "select a valid source", err); err != nil {
			return err
		}
		in.Source = src
	}
	if _, bad := fe["currency"]; !bad {
		c, err := s.storage.GetCurrency(ctx, in.Currency.ID)
		if err := checkReference(fe, "currency", "select a valid currency", err); err != nil {
			return err
		}
		in.Currency = c
	}
	in.OwnerID = userID
	return fe.Err()
}

// publish never fails the caller; the row is already committed.
func (s *LedgerService) publish(ctx context.Context, t events.Type, entityID, ownerID int64) {
	if err := s.publisher.Publish(ctx, events.New(t, entityID, ownerID, s.now())); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			"type", t,
			log.FieldEntityID, entityID,
			log.FieldError, err.Error())
	}
}

// CreateExpense records e for userID. Validation and reference problems
// come back as core.FieldErrors.
func (s *LedgerService) CreateExpense(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	if err := s.resolveExpense(ctx, userID, &e); err != nil {
		return core.Expense{}, err
	}
	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, events.ExpenseCreated, created.ID, userID)
	return created, nil
}

// UpdateExpense rewrites e.ID. Rows owned by someone else are ErrNotFound.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	if _, err := s.storage.GetExpense(ctx, userID, e.ID); err != nil {
		return core.Expense{}, err
	}
	if err := s.resolveExpense(ctx, userID, &e); err != nil {
		return core.Expense{}, err
	}
	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	s.publish(ctx, events.ExpenseUpdated, e.ID, userID)
	return e, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, events.ExpenseDeleted, id, userID)
	return nil
}

func (s *LedgerService) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, userID, id)
}

func (s *LedgerService) ListExpenses(ctx context.Context, userID int64, f filter.Expense) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, userID, f)
}

func (s *LedgerService) CreateIncome(ctx context.Context, userID int64, in core.Income) (core.Income, error) {
	if err := s.resolveIncome(ctx, userID, &in); err != nil {
		return core.Income{}, err
	}
	created, err := s.storage.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.publish(ctx, events.IncomeCreated, created.ID, userID)
	return created, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, userID int64, in core.Income) (core.Income, error) {
	if _, err := s.storage.GetIncome(ctx, userID, in.ID); err != nil {
		return core.Income{}, err
	}
	if err := s.resolveIncome(ctx, userID, &in); err != nil {
		return core.Income{}, err
	}
	if err := s.storage.UpdateIncome(ctx, in); err != nil {
		return core.Income{}, err
	}
	s.publish(ctx, events.IncomeUpdated, in.ID, userID)
	return in, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, events.IncomeDeleted, id, userID)
	return nil
}

func (s *LedgerService) GetIncome(ctx context.Context, userID, id int64) (core.Income, error) {
	return s.storage.GetIncome(ctx, userID, id)
}

func (s *LedgerService) ListIncomes(ctx context.Context, userID int64, f filter.Income) ([]core.Income, error) {
	return s.storage.ListIncomes(ctx, userID, f)
}

// CreateCategory adds a category owned by userID.
func (s *LedgerService) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), Owner: core.OwnedBy(userID)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	defer s.choices.Delete(choicesKey(userID))
	return s.storage.CreateCategory(ctx, c)
}

// CreateSource adds an income source owned by userID.
func (s *LedgerService) CreateSource(ctx context.Context, userID int64, name string) (core.Source, error) {
	src := core.Source{Name: strings.TrimSpace(name), Owner: core.OwnedBy(userID)}
	if err := src.Validate(); err != nil {
		return core.Source{}, err
	}
	defer s.choices.Delete(choicesKey(userID))
	return s.storage.CreateSource(ctx, src)
}

// Choices is what the expense and income forms offer.
type Choices struct {
	Categories []core.Category
	Sources    []core.Source
	Currencies []core.Currency
}

func choicesKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Choices lists what userID may pick from. Results are cached briefly.
func (s *LedgerService) Choices(ctx context.Context, userID int64) (Choices, error) {
	if ch, ok := s.choices.Get(choicesKey(userID)); ok {
		return ch, nil
	}

	var (
		ch  Choices
		err error
	)
	if ch.Categories, err = s.storage.ListVisibleCategories(ctx, userID); err != nil {
		return Choices{}, err
	}
	if ch.Sources, err = s.storage.ListVisibleSources(ctx, userID); err != nil {
		return Choices{}, err
	}
	if ch.Currencies, err = s.storage.ListCurrencies(ctx); err != nil {
		return Choices{}, err
	}
	s.choices.Set(choicesKey(userID), ch)
	return ch, nil
}

func (s *LedgerService) Profile(ctx context.Context, userID int64) (core.User, error) {
	return s.storage.GetUser(ctx, userID)
}

// UpdateProfile changes the user's own details. A taken username is a
// field error.
func (s *LedgerService) UpdateProfile(ctx context.Context, userID int64, u core.User) (core.User, error) {
	u.ID = userID
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	err := s.storage.UpdateUser(ctx, u)
	if errors.Is(err, storage.ErrConflict) {
		return core.User{}, core.FieldErrors{"username": "username already taken"}
	}
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Close releases the publisher and the database.
func (s *LedgerService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
