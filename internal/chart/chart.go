// Package chart draws the expense/income bar chart shown on the balance page.
package chart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"

	"budget/internal/core"
	"budget/internal/log"
)

const (
	DefaultPath = "./data/balance.png"

	labelExpense = "Expenses"
	labelIncome  = "Incomes"
)

// Renderer writes the chart to a single file that is overwritten on every
// render. Concurrent renders race and the last rename wins.
type Renderer struct {
	path   string
	logger *log.Logger
}

func NewRenderer(path string, logger *log.Logger) *Renderer {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Renderer{path: path, logger: logger.WithComponent(log.ComponentChart)}
}

// Path is where the last rendered image lives.
func (r *Renderer) Path() string {
	return r.path
}

// Render draws the two totals. Failures are logged and never returned; the
// previous image is removed so a stale chart is never served in its place.
func (r *Renderer) Render(ctx context.Context, totalExpense, totalIncome core.Money) {
	if err := r.render(totalExpense, totalIncome); err != nil {
		r.logger.WarnContext(ctx, "Chart not rendered",
			log.FieldOperation, log.OpRender,
			log.FieldError, err.Error(),
			"path", r.path)
		if rmErr := os.Remove(r.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			r.logger.WarnContext(ctx, "Stale chart not removed",
				log.FieldError, rmErr.Error(),
				"path", r.path)
		}
		return
	}
	r.logger.DebugContext(ctx, "Chart rendered", "path", r.path)
}

func (r *Renderer) render(totalExpense, totalIncome core.Money) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("chart panic: %v", p)
		}
	}()

	expense, income := totalExpense.Float64(), totalIncome.Float64()

	graph := chart.BarChart{
		Title:    "Balance",
		Height:   400,
		Width:    480,
		BarWidth: 120,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		// go-chart rejects a zero-width value range, which equal or
		// empty totals would produce on their own.
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: yMax(expense, income)},
		},
		Bars: []chart.Value{
			{Value: expense, Label: labelExpense},
			{Value: income, Label: labelIncome},
		},
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".chart-*.png")
	if err != nil {
		return fmt.Errorf("create temp chart: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := graph.Render(chart.PNG, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("draw chart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp chart: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace chart: %w", err)
	}
	return nil
}

// yMax tops the axis a little above the larger bar and never at zero.
func yMax(values ...float64) float64 {
	top := 1.0
	for _, v := range values {
		top = max(top, v*1.1)
	}
	return top
}
