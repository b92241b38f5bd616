package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Field limits mirrored by the schema.
const (
	MaxNameLength         = 50
	MaxCurrencyNameLength = 20
	MaxCurrencyCodeLength = 10
)

type (
	Date struct {
		time.Time
	}

	User struct {
		ID        int64
		Username  string
		FirstName string
		LastName  string
		Email     string
	}

	Currency struct {
		ID   int64
		Name string
		Code string
	}

	// Category classifies expenses. Shared categories are seeded defaults.
	Category struct {
		ID    int64
		Name  string
		Owner Owner
	}

	// Source classifies incomes. Shared sources are seeded defaults.
	Source struct {
		ID    int64
		Name  string
		Owner Owner
	}

	Expense struct {
		ID       int64
		Name     string
		Cost     Money
		Date     Date
		Category Category
		Currency Currency
		OwnerID  int64
	}

	Income struct {
		ID       int64
		Amount   Money
		Date     Date
		Source   Source
		Currency Currency
		OwnerID  int64
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = fmt.Errorf("name too long (max %d characters)", MaxNameLength)
	ErrMissingCategory = errors.New("missing category")
	ErrMissingSource   = errors.New("missing source")
	ErrMissingCurrency = errors.New("missing currency")
	ErrEmptyUsername   = errors.New("empty username")
)

// DateLayout is the ISO form used by forms, filters and the database.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthNumber returns the calendar month, 1-12.
func (d Date) MonthNumber() int {
	return int(d.Time.Month())
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Validate checks the user-editable fields of an expense. Ownership and
// visibility of the referenced category are checked by the ledger service.
func (e Expense) Validate() error {
	fe := FieldErrors{}
	if err := validateName(e.Name); err != nil {
		fe.Add("name", err.Error())
	}
	if err := e.Cost.Validate(); err != nil {
		fe.Add("cost", err.Error())
	}
	if err := e.Date.Validate(); err != nil {
		fe.Add("expense_date", err.Error())
	}
	if e.Category.ID <= 0 {
		fe.Add("category", ErrMissingCategory.Error())
	}
	if e.Currency.ID <= 0 {
		fe.Add("currency", ErrMissingCurrency.Error())
	}
	return fe.Err()
}

func (i Income) Validate() error {
	fe := FieldErrors{}
	if err := i.Amount.Validate(); err != nil {
		fe.Add("amount", err.Error())
	}
	if err := i.Date.Validate(); err != nil {
		fe.Add("income_date", err.Error())
	}
	if i.Source.ID <= 0 {
		fe.Add("source", ErrMissingSource.Error())
	}
	if i.Currency.ID <= 0 {
		fe.Add("currency", ErrMissingCurrency.Error())
	}
	return fe.Err()
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return FieldErrors{"name": err.Error()}
	}
	return nil
}

func (s Source) Validate() error {
	if err := validateName(s.Name); err != nil {
		return FieldErrors{"name": err.Error()}
	}
	return nil
}

func (u User) Validate() error {
	fe := FieldErrors{}
	if strings.TrimSpace(u.Username) == "" {
		fe.Add("username", ErrEmptyUsername.Error())
	} else if len(u.Username) > 150 {
		fe.Add("username", "username too long (max 150 characters)")
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		fe.Add("email", "invalid email address")
	}
	return fe.Err()
}

// FieldErrors maps a form or query field to a user-facing message.
type FieldErrors map[string]string

// Add records msg for field, keeping the first message per field.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// Err returns nil when no field failed, so callers never see a typed nil.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
