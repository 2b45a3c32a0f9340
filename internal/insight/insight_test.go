package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/models"
)

func result(name string, rows ...aggregate.Row) *aggregate.Result {
	return &aggregate.Result{
		GroupBy: []models.Column{models.ColCategory},
		Metrics: []aggregate.Metric{{Name: name, Func: aggregate.Count}},
		Rows:    rows,
	}
}

func row(label string, v float64, size int) aggregate.Row {
	return aggregate.Row{
		Keys:   []string{label},
		Label:  label,
		Values: []aggregate.Value{{Number: v, Valid: true}},
		Size:   size,
	}
}

func TestExtract_Top(t *testing.T) {
	got := Extract(result("items", row("toys", 2, 2), row("books", 1, 1)), Top, 0)

	assert.True(t, got.Available)
	assert.Equal(t, "toys", got.Label)
	assert.Equal(t, 2.0, got.Value)
	assert.Equal(t, "toys leads with 2 items", got.Caption)
}

func TestExtract_Bottom(t *testing.T) {
	got := Extract(result("items", row("garden", 1, 1), row("books", 1, 1)), Bottom, 0)

	assert.True(t, got.Available)
	assert.Equal(t, "garden", got.Label)
	assert.Equal(t, "garden has the fewest items (1)", got.Caption)
}

func TestExtract_SingularUnit(t *testing.T) {
	got := Extract(result("customers", row("RJ", 1, 1)), Top, 0)
	assert.Equal(t, "RJ leads with 1 customer", got.Caption)

	trend := Extract(result("orders", row("March", 1, 1), row("April", 0, 0)), Extremes, 0)
	assert.Equal(t, "Busiest: March (1 order). Slowest: April (0 orders)", trend.Caption)
}

func TestExtract_ExtremesTiesResolveToFirstRow(t *testing.T) {
	res := result("orders",
		row("January", 4, 4),
		row("February", 9, 9),
		row("March", 9, 9),
		row("April", 4, 4),
	)

	got := Extract(res, Extremes, 0)
	assert.True(t, got.Available)
	assert.Equal(t, "February", got.Label)
	assert.Equal(t, "January", got.MinLabel)
	assert.Equal(t, "Busiest: February (9 orders). Slowest: January (4 orders)", got.Caption)
}

func TestExtract_ExtremesIncludesFilledBuckets(t *testing.T) {
	got := Extract(result("orders", row("January", 0, 0), row("February", 3, 3)), Extremes, 0)
	assert.Equal(t, "January", got.MinLabel)
	assert.Zero(t, got.MinValue)
}

func TestExtract_Mean(t *testing.T) {
	res := &aggregate.Result{
		Metrics: []aggregate.Metric{{Name: "review score", Column: models.ColReviewScore, Func: aggregate.Mean}},
		Rows:    []aggregate.Row{{Label: "all", Values: []aggregate.Value{{Number: 4.126, Valid: true}}, Size: 8}},
	}

	got := Extract(res, Mean, 0)
	assert.True(t, got.Available)
	assert.Equal(t, "Average review score: 4.13", got.Caption)
}

func TestExtract_NoData(t *testing.T) {
	filledOnly := result("orders", row("January", 0, 0), row("February", 0, 0))
	undefined := &aggregate.Result{
		Metrics: []aggregate.Metric{{Name: "price", Func: aggregate.Mean}},
		Rows:    []aggregate.Row{{Label: "all", Values: []aggregate.Value{{}}}},
	}

	tests := []struct {
		name   string
		result *aggregate.Result
		kind   Kind
		metric int
	}{
		{"nil result", nil, Top, 0},
		{"empty result", result("items"), Top, 0},
		{"metric out of range", result("items", row("toys", 1, 1)), Top, 3},
		{"only filled buckets", filledOnly, Extremes, 0},
		{"undefined mean", undefined, Mean, 0},
		{"unknown kind", result("items", row("toys", 1, 1)), Kind("median"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.result, tt.kind, tt.metric)
			assert.False(t, got.Available)
			assert.Equal(t, "no data", got.Caption)
		})
	}
}
