package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", d.String())
	assert.Equal(t, 1, d.MonthNumber())

	for _, bad := range []string{"", "2024-13-01", "31.01.2024", "2024-02-30", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, "input %q", bad)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Name:     "Obiad",
		Cost:     MoneyFromCents(1250),
		Date:     NewDate(2025, 1, 1),
		Category: Category{ID: 1},
		Currency: Currency{ID: 1},
	}
	require.NoError(t, good.Validate())

	bads := map[string]Expense{
		"name":         {Name: " ", Cost: good.Cost, Date: good.Date, Category: good.Category, Currency: good.Currency},
		"cost":         {Name: "a", Date: good.Date, Category: good.Category, Currency: good.Currency},
		"expense_date": {Name: "a", Cost: good.Cost, Date: Date{Time: time.Time{}}, Category: good.Category, Currency: good.Currency},
		"category":     {Name: "a", Cost: good.Cost, Date: good.Date, Currency: good.Currency},
		"currency":     {Name: "a", Cost: good.Cost, Date: good.Date, Category: good.Category},
	}
	for field, e := range bads {
		t.Run(field, func(t *testing.T) {
			var fe FieldErrors
			require.ErrorAs(t, e.Validate(), &fe)
			assert.Contains(t, fe, field)
		})
	}

	long := good
	long.Name = strings.Repeat("x", MaxNameLength+1)
	assert.Error(t, long.Validate())
}

func TestIncomeValidate(t *testing.T) {
	good := Income{Amount: MoneyFromCents(100), Date: NewDate(2025, 2, 1), Source: Source{ID: 2}, Currency: Currency{ID: 1}}
	require.NoError(t, good.Validate())

	var fe FieldErrors
	require.ErrorAs(t, Income{}.Validate(), &fe)
	assert.Len(t, fe, 4)
}

func TestOwner(t *testing.T) {
	shared := SharedOwner()
	mine := OwnedBy(7)

	assert.True(t, shared.IsShared())
	assert.False(t, mine.IsShared())

	assert.True(t, shared.VisibleTo(7), "shared rows are visible to everyone")
	assert.True(t, shared.VisibleTo(8), "shared rows are visible to everyone")
	assert.False(t, shared.MutableBy(7), "shared rows are read-only")

	assert.True(t, mine.VisibleTo(7))
	assert.False(t, mine.VisibleTo(8), "owned rows are visible to their owner only")
	assert.True(t, mine.MutableBy(7))
	assert.False(t, mine.MutableBy(8), "owned rows are mutable by their owner only")

	id, ok := mine.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	assert.Equal(t, shared, Owner{}, "zero owner is shared")
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	assert.NoError(t, fe.Err())

	fe.Add("b", "second")
	fe.Add("a", "first")
	fe.Add("a", "ignored")
	assert.EqualError(t, fe, "invalid fields: a: first; b: second")
}
