package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/filter"
)

func filterAll() filter.Expense      { return filter.Expense{} }
func incomeFilterAll() filter.Income { return filter.Income{} }

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Chleb  ", "Chleb"},
		{"Chl\x00eb", "Chleb"},
		{"a\tb", "a\tb"},
		{"\x1b[31mred", "[31mred"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeInput(tt.in))
	}
}

func TestParseExpenseForm(t *testing.T) {
	f, e, fe := parseExpenseForm(url.Values{
		"name":         {" Chleb "},
		"cost":         {"4,50"},
		"expense_date": {"2024-03-02"},
		"category":     {"3"},
		"currency":     {"1"},
		"user":         {"42"},
	})
	require.Empty(t, fe)
	assert.Equal(t, "Chleb", f.Name)
	assert.Equal(t, "Chleb", e.Name)
	assert.Equal(t, int64(450), e.Cost.Cents())
	assert.Equal(t, "2024-03-02", e.Date.String())
	assert.Equal(t, int64(3), e.Category.ID)
	assert.Equal(t, int64(1), e.Currency.ID)
	assert.Zero(t, e.OwnerID)
}

func TestParseExpenseFormKeepsRawInput(t *testing.T) {
	f, _, fe := parseExpenseForm(url.Values{
		"name":         {"Chleb"},
		"cost":         {"abc"},
		"expense_date": {"02.03.2024"},
		"category":     {""},
		"currency":     {"x"},
	})
	assert.Equal(t, "abc", f.Cost)
	assert.Equal(t, "02.03.2024", f.Date)
	assert.Equal(t, msgAmount, fe["cost"])
	assert.Equal(t, msgDate, fe["expense_date"])
	assert.Equal(t, msgCategory, fe["category"])
	assert.Equal(t, msgCurrency, fe["currency"])
	assert.NotContains(t, fe, "name")
}

func TestParseIncomeForm(t *testing.T) {
	_, in, fe := parseIncomeForm(url.Values{
		"amount":      {"1000"},
		"income_date": {"2024-03-10"},
		"source":      {"2"},
		"currency":    {"4"},
	})
	require.Empty(t, fe)
	assert.Equal(t, int64(100000), in.Amount.Cents())
	assert.Equal(t, int64(2), in.Source.ID)
	assert.Equal(t, int64(4), in.Currency.ID)

	_, _, fe = parseIncomeForm(url.Values{"amount": {"100000"}})
	assert.Equal(t, msgAmount, fe["amount"])
	assert.Equal(t, msgSource, fe["source"])
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/expenses/"+tt.raw+"/edit", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", tt.raw)
		r = r.WithContext(contextWithRoute(r, rctx))

		got, err := pathID(r)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
