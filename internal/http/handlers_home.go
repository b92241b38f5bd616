package http

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/reporting"
)

type homePage struct {
	layout
	Currencies    []core.Currency
	Selected      int64
	CurrencyError string
	Summary       core.Summary
	ChartVersion  string
}

// handleHome shows the balance for the selected currency and refreshes the
// chart. An unknown selector falls back to the default currency with 422.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	ctx := r.Context()
	status := http.StatusOK
	data := homePage{layout: newLayout("Balance", p)}

	choices, err := s.ledger.Choices(ctx, p.UserID)
	if err != nil {
		s.fail(w, r, log.OpSummary, err)
		return
	}
	data.Currencies = choices.Currencies

	currency, err := s.reports.ResolveCurrency(ctx, r.URL.Query().Get("currency_filter"))
	if errors.Is(err, reporting.ErrUnknownCurrency) && r.URL.Query().Get("currency_filter") != "" {
		status = http.StatusUnprocessableEntity
		data.CurrencyError = "select a valid currency"
		currency, err = s.reports.DefaultCurrency(ctx)
	}
	if err != nil {
		s.fail(w, r, log.OpSummary, err)
		return
	}
	data.Selected = currency.ID

	summary, err := s.reports.Summary(ctx, p.UserID, currency)
	if err != nil {
		s.fail(w, r, log.OpSummary, err)
		return
	}
	data.Summary = summary

	s.chart.Render(ctx, summary.Balance.TotalExpense, summary.Balance.TotalIncome)
	data.ChartVersion = strconv.FormatInt(time.Now().UnixNano(), 36)

	s.page("home.html", data).Status(status).Write(w, r)
}

// handleChart serves the most recently rendered chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.chart.Path()); err != nil {
		NotFoundError().Write(w)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, s.chart.Path())
}
