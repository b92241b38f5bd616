package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
)

// maxFormBytes caps POST bodies; every form here is a handful of fields.
const maxFormBytes = 64 << 10

var errBadID = errors.New("bad id")

// sanitizeInput trims and drops control characters other than tab/newline.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseForm limits and parses a POST body.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

// pathID reads the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func parseRefID(fe core.FieldErrors, field, raw, msg string) int64 {
	if raw == "" {
		fe.Add(field, msg)
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fe.Add(field, msg)
		return 0
	}
	return id
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

const (
	msgAmount   = "enter a positive amount below 100000 with at most two decimals"
	msgDate     = "enter a valid date (YYYY-MM-DD)"
	msgCategory = "select a valid category"
	msgSource   = "select a valid source"
	msgCurrency = "select a valid currency"
)

// expenseForm is the submitted or prefilled state of the expense form.
type expenseForm struct {
	ID       int64
	Name     string
	Cost     string
	Date     string
	Category string
	Currency string
	Errors   core.FieldErrors
}

func expenseFormFrom(e core.Expense) expenseForm {
	return expenseForm{
		ID:       e.ID,
		Name:     e.Name,
		Cost:     e.Cost.String(),
		Date:     e.Date.String(),
		Category: idString(e.Category.ID),
		Currency: idString(e.Currency.ID),
	}
}

// parseExpenseForm reads name, cost, expense_date, category and currency.
// The owner is never taken from the form.
func parseExpenseForm(form url.Values) (expenseForm, core.Expense, core.FieldErrors) {
	f := expenseForm{
		Name:     sanitizeInput(form.Get("name")),
		Cost:     sanitizeInput(form.Get("cost")),
		Date:     sanitizeInput(form.Get("expense_date")),
		Category: sanitizeInput(form.Get("category")),
		Currency: sanitizeInput(form.Get("currency")),
	}
	fe := core.FieldErrors{}
	e := core.Expense{Name: f.Name}

	if m, err := core.ParseMoney(f.Cost); err != nil {
		fe.Add("cost", msgAmount)
	} else {
		e.Cost = m
	}
	if d, err := core.ParseDate(f.Date); err != nil {
		fe.Add("expense_date", msgDate)
	} else {
		e.Date = d
	}
	e.Category.ID = parseRefID(fe, "category", f.Category, msgCategory)
	e.Currency.ID = parseRefID(fe, "currency", f.Currency, msgCurrency)

	if err := e.Validate(); err != nil {
		var vfe core.FieldErrors
		if errors.As(err, &vfe) {
			for k, v := range vfe {
				fe.Add(k, v)
			}
		}
	}
	return f, e, fe
}

type incomeForm struct {
	ID       int64
	Amount   string
	Date     string
	Source   string
	Currency string
	Errors   core.FieldErrors
}

func incomeFormFrom(in core.Income) incomeForm {
	return incomeForm{
		ID:       in.ID,
		Amount:   in.Amount.String(),
		Date:     in.Date.String(),
		Source:   idString(in.Source.ID),
		Currency: idString(in.Currency.ID),
	}
}

// parseIncomeForm reads amount, income_date, source and currency.
func parseIncomeForm(form url.Values) (incomeForm, core.Income, core.FieldErrors) {
	f := incomeForm{
		Amount:   sanitizeInput(form.Get("amount")),
		Date:     sanitizeInput(form.Get("income_date")),
		Source:   sanitizeInput(form.Get("source")),
		Currency: sanitizeInput(form.Get("currency")),
	}
	fe := core.FieldErrors{}
	var in core.Income

	if m, err := core.ParseMoney(f.Amount); err != nil {
		fe.Add("amount", msgAmount)
	} else {
		in.Amount = m
	}
	if d, err := core.ParseDate(f.Date); err != nil {
		fe.Add("income_date", msgDate)
	} else {
		in.Date = d
	}
	in.Source.ID = parseRefID(fe, "source", f.Source, msgSource)
	in.Currency.ID = parseRefID(fe, "currency", f.Currency, msgCurrency)
	return f, in, fe
}

// mergeFieldErrors copies a service's field errors into fe and reports
// whether err was a field error at all.
func mergeFieldErrors(fe core.FieldErrors, err error) bool {
	var vfe core.FieldErrors
	if !errors.As(err, &vfe) {
		return false
	}
	for k, v := range vfe {
		fe.Add(k, v)
	}
	return true
}
