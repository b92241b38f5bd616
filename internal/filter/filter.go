// Package filter turns list-page query parameters into typed predicates.
//
// Each filter is a struct of optional fields; a nil field places no
// restriction. Storage translates the struct into SQL conditions joined
// with AND.
package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// maxThreshold keeps numeric filters inside int64 cents.
var maxThreshold = decimal.New(1, 12)

// ValidationError lists the parameters that could not be parsed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid filter: " + strings.Join(parts, "; ")
}

// IDMatch restricts a reference column to one id. Valid is false when the
// raw parameter was not a usable id; such a filter matches nothing.
type IDMatch struct {
	ID    int64
	Valid bool
}

// Amount is a numeric threshold compared against a cents column.
type Amount struct {
	Value decimal.Decimal
}

// CentsAbove returns c such that cents > c  <=>  value > Amount.
func (a Amount) CentsAbove() int64 {
	return a.Value.Shift(2).Floor().IntPart()
}

// CentsBelow returns c such that cents < c  <=>  value < Amount.
func (a Amount) CentsBelow() int64 {
	return a.Value.Shift(2).Ceil().IntPart()
}

// ExactCents returns the cent value equal to Amount, or false if no
// two-decimal value can equal it.
func (a Amount) ExactCents() (int64, bool) {
	shifted := a.Value.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, false
	}
	return shifted.IntPart(), true
}

// Range holds the exact/greater/less triple shared by amount and date filters.
type Range[T any] struct {
	Exact  *T
	After  *T
	Before *T
}

func (r Range[T]) Empty() bool {
	return r.Exact == nil && r.After == nil && r.Before == nil
}

// Expense narrows an expense listing.
type Expense struct {
	Category *IDMatch
	Currency *IDMatch
	Cost     Range[Amount]
	Date     Range[core.Date]
	Name     *string
}

// Income narrows an income listing.
type Income struct {
	Source   *IDMatch
	Currency *IDMatch
	Amount   Range[Amount]
	Date     Range[core.Date]
}

// ParseExpense reads category, currency, cost[__gt|__lt],
// expense_date[__gt|__lt] and name. Unknown parameters are ignored.
func ParseExpense(q url.Values) (Expense, error) {
	p := parser{q: q, errs: map[string]string{}}
	f := Expense{
		Category: p.id("category"),
		Currency: p.id("currency"),
		Cost:     p.amountRange("cost"),
		Date:     p.dateRange("expense_date"),
	}
	if v := strings.TrimSpace(q.Get("name")); v != "" {
		f.Name = &v
	}
	return f, p.err()
}

// ParseIncome reads source, currency, amount[__gt|__lt] and
// income_date[__gt|__lt].
func ParseIncome(q url.Values) (Income, error) {
	p := parser{q: q, errs: map[string]string{}}
	f := Income{
		Source:   p.id("source"),
		Currency: p.id("currency"),
		Amount:   p.amountRange("amount"),
		Date:     p.dateRange("income_date"),
	}
	return f, p.err()
}

type parser struct {
	q    url.Values
	errs map[string]string
}

func (p *parser) value(key string) (string, bool) {
	v := strings.TrimSpace(p.q.Get(key))
	return v, v != ""
}

func (p *parser) id(key string) *IDMatch {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return &IDMatch{}
	}
	return &IDMatch{ID: id, Valid: true}
}

func (p *parser) amount(key string) *Amount {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		p.errs[key] = "enter a number"
		return nil
	}
	if d.Abs().GreaterThanOrEqual(maxThreshold) {
		p.errs[key] = "number out of range"
		return nil
	}
	return &Amount{Value: d}
}

func (p *parser) date(key string) *core.Date {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		p.errs[key] = "enter a valid date (YYYY-MM-DD)"
		return nil
	}
	return &d
}

func (p *parser) amountRange(field string) Range[Amount] {
	return Range[Amount]{
		Exact:  p.amount(field),
		After:  p.amount(field + "__gt"),
		Before: p.amount(field + "__lt"),
	}
}

func (p *parser) dateRange(field string) Range[core.Date] {
	return Range[core.Date]{
		Exact:  p.date(field),
		After:  p.date(field + "__gt"),
		Before: p.date(field + "__lt"),
	}
}

func (p *parser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: p.errs}
}
