package aggregate

import (
	"encoding/json"
	"strings"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

type Func string

const (
	Count         Func = "count"
	CountDistinct Func = "count_distinct"
	Sum           Func = "sum"
	Mean          Func = "mean"
)

// Metric is one aggregated output column. A Count metric without a Column
// counts rows.
type Metric struct {
	Name   string        `json:"name"`
	Column models.Column `json:"column,omitempty"`
	Func   Func          `json:"func"`
}

type Order string

const (
	ByKey     Order = "by_key"
	ValueDesc Order = "value_desc"
	ValueAsc  Order = "value_asc"
)

// Spec describes one grouped aggregation.
type Spec struct {
	GroupBy []models.Column
	Metrics []Metric
	// Year restricts input rows to one calendar year before grouping.
	Year int
	// Order sorts rows by key, or by the metric at SortMetric.
	Order      Order
	SortMetric int
	// Limit truncates the sorted rows; 0 keeps all.
	Limit int
	// ZeroFill adds empty buckets for a single time key: all twelve months for
	// ColMonth, every month between FillFrom and FillTo for ColPeriod.
	ZeroFill bool
	FillFrom time.Time
	FillTo   time.Time
}

// Value is an aggregated number. Mean over no observations is undefined and
// marshals as null.
type Value struct {
	Number float64
	Valid  bool
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Number)
}

type Row struct {
	Keys   []string `json:"keys"`
	Label  string   `json:"label"`
	Values []Value  `json:"values"`
	// Size is the number of input rows in the bucket; zero for filled buckets.
	Size int `json:"size"`
}

// Key returns the joined group key.
func (r Row) Key() string { return strings.Join(r.Keys, " / ") }

type Result struct {
	GroupBy []models.Column `json:"group_by"`
	Metrics []Metric        `json:"metrics"`
	Rows    []Row           `json:"rows"`
}

func (r *Result) Empty() bool { return len(r.Rows) == 0 }

// Observed reports whether any bucket was built from at least one input row.
func (r *Result) Observed() bool {
	for _, row := range r.Rows {
		if row.Size > 0 {
			return true
		}
	}
	return false
}

// Aggregate groups the view by spec.GroupBy and computes spec.Metrics per
// group. The view is never modified. When a group-by column or a metric source
// column has no values in the view, the result has no rows.
func Aggregate(view *dataset.View, spec Spec) *Result {
	res := &Result{GroupBy: spec.GroupBy, Metrics: spec.Metrics, Rows: []Row{}}

	for _, col := range spec.GroupBy {
		if !view.Has(col) {
			return res
		}
	}
	for _, m := range spec.Metrics {
		if m.Column != "" && !view.Has(m.Column) {
			return res
		}
	}

	groups := make(map[string]*accumulator)
	var order []string
	for i := 0; i < view.Len(); i++ {
		tx := view.Row(i)
		if spec.Year != 0 && tx.Year != spec.Year {
			continue
		}
		keys, ok := groupKeys(tx, spec.GroupBy)
		if !ok {
			continue
		}
		k := strings.Join(keys, "\x1f")
		acc, exists := groups[k]
		if !exists {
			acc = newAccumulator(keys, spec.Metrics)
			groups[k] = acc
			order = append(order, k)
		}
		acc.add(tx)
	}

	if len(spec.GroupBy) == 0 && len(groups) == 0 {
		return res
	}

	rows := make([]Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, groups[k].row(spec.GroupBy))
	}
	if spec.ZeroFill && len(spec.GroupBy) == 1 {
		rows = fillTimeBuckets(rows, spec)
	}

	sortRows(rows, spec.Order, spec.SortMetric)
	if spec.Limit > 0 && len(rows) > spec.Limit {
		rows = rows[:spec.Limit]
	}
	res.Rows = rows
	return res
}

func groupKeys(tx *models.Transaction, cols []models.Column) ([]string, bool) {
	keys := make([]string, len(cols))
	for i, col := range cols {
		v, ok := tx.Value(col)
		if !ok {
			return nil, false
		}
		keys[i] = v
	}
	return keys, true
}

type accumulator struct {
	keys     []string
	size     int
	metrics  []Metric
	counts   []int
	sums     []float64
	distinct []map[string]struct{}
}

func newAccumulator(keys []string, metrics []Metric) *accumulator {
	acc := &accumulator{
		keys:     keys,
		metrics:  metrics,
		counts:   make([]int, len(metrics)),
		sums:     make([]float64, len(metrics)),
		distinct: make([]map[string]struct{}, len(metrics)),
	}
	for i, m := range metrics {
		if m.Func == CountDistinct {
			acc.distinct[i] = make(map[string]struct{})
		}
	}
	return acc
}

func (a *accumulator) add(tx *models.Transaction) {
	a.size++
	for i, m := range a.metrics {
		switch m.Func {
		case Count:
			if m.Column == "" || tx.Has(m.Column) {
				a.counts[i]++
			}
		case CountDistinct:
			if v, ok := tx.Value(m.Column); ok {
				a.distinct[i][v] = struct{}{}
			}
		case Sum, Mean:
			if v, ok := tx.Number(m.Column); ok {
				a.sums[i] += v
				a.counts[i]++
			}
		}
	}
}

func (a *accumulator) row(groupBy []models.Column) Row {
	values := make([]Value, len(a.metrics))
	for i, m := range a.metrics {
		switch m.Func {
		case Count:
			values[i] = Value{Number: float64(a.counts[i]), Valid: true}
		case CountDistinct:
			values[i] = Value{Number: float64(len(a.distinct[i])), Valid: true}
		case Sum:
			values[i] = Value{Number: a.sums[i], Valid: true}
		case Mean:
			if a.counts[i] > 0 {
				values[i] = Value{Number: a.sums[i] / float64(a.counts[i]), Valid: true}
			}
		}
	}
	return Row{
		Keys:   a.keys,
		Label:  label(groupBy, a.keys),
		Values: values,
		Size:   a.size,
	}
}

// emptyRow is a filled bucket: zero for counts and sums, undefined for means.
func emptyRow(groupBy []models.Column, keys []string, metrics []Metric) Row {
	values := make([]Value, len(metrics))
	for i, m := range metrics {
		values[i] = Value{Valid: m.Func != Mean}
	}
	return Row{Keys: keys, Label: label(groupBy, keys), Values: values}
}

// Ranking builds a spec that groups by col and keeps the n largest (top) or
// smallest buckets of metric. Bottom rankings break ties in reverse key order,
// the exact reverse of the top ranking, so top and bottom never share a row
// while n is at most half the bucket count.
func Ranking(col models.Column, metric Metric, n int, top bool) Spec {
	order := ValueAsc
	if top {
		order = ValueDesc
	}
	return Spec{
		GroupBy: []models.Column{col},
		Metrics: []Metric{metric},
		Order:   order,
		Limit:   n,
	}
}

// Rank is Aggregate with a Ranking spec.
func Rank(view *dataset.View, col models.Column, metric Metric, n int, top bool) *Result {
	return Aggregate(view, Ranking(col, metric, n, top))
}
