package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/normalize"
)

func normalized(t testing.TB, header []string, rows [][]string) *dataset.View {
	t.Helper()
	ds, _, err := normalize.New(nil).Normalize(context.Background(), dataset.NewRawTable(header, rows))
	require.NoError(t, err)
	return ds.All()
}

func threeRows(t testing.TB) *dataset.View {
	return normalized(t,
		[]string{"customer_state", "product_category_name", "price", "freight_value", "order_purchase_timestamp"},
		[][]string{
			{"SP", "toys", "R$10,00", "2.0", "2017-03-05"},
			{"SP", "toys", "R$5,00", "1.0", "2017-03-20"},
			{"RJ", "books", "R$20,00", "0.0", "2017-04-01"},
		})
}

var itemCount = Metric{Name: "items", Func: Count}

func keys(res *Result) []string {
	out := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = r.Key()
	}
	return out
}

func TestAggregate_ThreeRowScenario(t *testing.T) {
	view := threeRows(t)

	byCategory := Aggregate(view, Spec{
		GroupBy: []models.Column{models.ColCategory},
		Metrics: []Metric{itemCount},
		Year:    2017,
		Order:   ValueDesc,
	})
	require.Len(t, byCategory.Rows, 2)
	assert.Equal(t, "toys", byCategory.Rows[0].Label)
	assert.Equal(t, 2.0, byCategory.Rows[0].Values[0].Number)
	assert.Equal(t, "books", byCategory.Rows[1].Label)
	assert.Equal(t, 1.0, byCategory.Rows[1].Values[0].Number)

	top := Rank(view, models.ColCategory, itemCount, 1, true)
	require.Len(t, top.Rows, 1)
	assert.Equal(t, "toys", top.Rows[0].Label)

	monthly := Aggregate(view, Spec{
		GroupBy: []models.Column{models.ColMonth},
		Metrics: []Metric{{Name: "revenue", Column: models.ColRevenue, Func: Sum}},
		Year:    2017,
		Order:   ByKey,
	})
	require.Len(t, monthly.Rows, 2)
	assert.Equal(t, "March", monthly.Rows[0].Label)
	assert.InDelta(t, 18.0, monthly.Rows[0].Values[0].Number, 1e-9)
	assert.InDelta(t, 20.0, monthly.Rows[1].Values[0].Number, 1e-9)
}

func TestAggregate_YearRestriction(t *testing.T) {
	res := Aggregate(threeRows(t), Spec{
		GroupBy: []models.Column{models.ColCategory},
		Metrics: []Metric{itemCount},
		Year:    2018,
	})
	assert.True(t, res.Empty())
	assert.False(t, res.Observed())
}

func TestAggregate_ZeroFillMonths(t *testing.T) {
	spec := Spec{
		GroupBy: []models.Column{models.ColMonth},
		Metrics: []Metric{itemCount, {Name: "avg_price", Column: models.ColPrice, Func: Mean}},
		Year:    2017,
		Order:   ByKey,
	}

	omitted := Aggregate(threeRows(t), spec)
	assert.Equal(t, []string{"3", "4"}, keys(omitted))

	spec.ZeroFill = true
	filled := Aggregate(threeRows(t), spec)
	require.Len(t, filled.Rows, 12)
	for i, row := range filled.Rows {
		assert.Equal(t, time.Month(i+1).String(), row.Label)
	}
	jan := filled.Rows[0]
	assert.Equal(t, 0, jan.Size)
	assert.True(t, jan.Values[0].Valid)
	assert.Zero(t, jan.Values[0].Number)
	assert.False(t, jan.Values[1].Valid, "mean of an empty bucket is undefined")
	assert.Equal(t, 2.0, filled.Rows[2].Values[0].Number)
}

func TestAggregate_ZeroFillPeriods(t *testing.T) {
	view := normalized(t,
		[]string{"order_id", "order_purchase_timestamp"},
		[][]string{
			{"o1", "2017-11-03"},
			{"o2", "2018-02-14"},
			{"o3", "not a date"},
		})
	spec := Spec{
		GroupBy:  []models.Column{models.ColPeriod},
		Metrics:  []Metric{{Name: "orders", Column: models.ColOrderID, Func: CountDistinct}},
		Order:    ByKey,
		ZeroFill: true,
	}

	res := Aggregate(view, spec)
	assert.Equal(t, []string{"2017-11", "2017-12", "2018-01", "2018-02"}, keys(res))
	assert.Equal(t, "Nov 2017", res.Rows[0].Label)

	spec.FillFrom = time.Date(2017, 10, 15, 0, 0, 0, 0, time.UTC)
	spec.FillTo = time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	bounded := Aggregate(view, spec)
	assert.Equal(t, []string{"2017-10", "2017-11", "2017-12", "2018-01", "2018-02", "2018-03"}, keys(bounded))
}

func TestAggregate_InvalidTimestampExcludedFromTrendOnly(t *testing.T) {
	view := normalized(t,
		[]string{"customer_unique_id", "customer_state", "order_purchase_timestamp"},
		[][]string{
			{"c1", "SP", "2017-03-05"},
			{"c2", "SP", "garbage"},
			{"c3", "RJ", "2017-03-09"},
		})

	trend := Aggregate(view, Spec{
		GroupBy: []models.Column{models.ColPeriod},
		Metrics: []Metric{itemCount},
		Order:   ByKey,
	})
	require.Len(t, trend.Rows, 1)
	assert.Equal(t, 2.0, trend.Rows[0].Values[0].Number)

	states := Aggregate(view, Ranking(models.ColCustomerState,
		Metric{Name: "customers", Column: models.ColCustomerUniqueID, Func: CountDistinct}, 5, true))
	require.Len(t, states.Rows, 2)
	assert.Equal(t, "SP", states.Rows[0].Label)
	assert.Equal(t, 2.0, states.Rows[0].Values[0].Number)
}

func TestAggregate_AbsentColumnYieldsEmptyResult(t *testing.T) {
	view := threeRows(t)

	noKey := Aggregate(view, Spec{GroupBy: []models.Column{models.ColReviewScore}, Metrics: []Metric{itemCount}})
	assert.True(t, noKey.Empty())

	noSource := Aggregate(view, Spec{
		GroupBy: []models.Column{models.ColCategory},
		Metrics: []Metric{{Name: "customers", Column: models.ColCustomerUniqueID, Func: CountDistinct}},
	})
	assert.True(t, noSource.Empty())
	assert.NotNil(t, noSource.Rows)
}

func TestAggregate_TieBreakByNaturalKey(t *testing.T) {
	view := normalized(t, []string{"product_category_name"}, [][]string{
		{"b"}, {"c"}, {"a"}, {"c"}, {"d"}, {"b"},
	})

	desc := Aggregate(view, Ranking(models.ColCategory, itemCount, 0, true))
	assert.Equal(t, []string{"b", "c", "a", "d"}, keys(desc))

	asc := Aggregate(view, Ranking(models.ColCategory, itemCount, 0, false))
	assert.Equal(t, []string{"d", "a", "c", "b"}, keys(asc))

	byKey := Aggregate(normalized(t, []string{"review_score"}, [][]string{{"5"}, {"10"}, {"4"}, {"1"}}), Spec{
		GroupBy: []models.Column{models.ColReviewScore},
		Metrics: []Metric{itemCount},
	})
	assert.Equal(t, []string{"1", "4", "5"}, keys(byKey), "numeric keys sort numerically")
}

func TestAggregate_TopBottomDisjoint(t *testing.T) {
	var rows [][]string
	for i, n := range []int{3, 1, 1, 1, 2, 2, 1, 5} {
		for range n {
			rows = append(rows, []string{fmt.Sprintf("cat%d", i)})
		}
	}
	view := normalized(t, []string{"product_category_name"}, rows)
	const categories = 8

	for n := 1; n <= categories; n++ {
		top := keys(Aggregate(view, Ranking(models.ColCategory, itemCount, n, true)))
		bottom := keys(Aggregate(view, Ranking(models.ColCategory, itemCount, n, false)))
		require.Len(t, top, n)
		require.Len(t, bottom, n)
		if n <= categories/2 {
			for _, k := range top {
				assert.NotContains(t, bottom, k, "n=%d", n)
			}
		}
	}
}

func TestAggregate_MultiKeyAndScalar(t *testing.T) {
	view := threeRows(t)

	multi := Aggregate(view, Spec{
		GroupBy: []models.Column{models.ColCustomerState, models.ColCategory},
		Metrics: []Metric{{Name: "revenue", Column: models.ColRevenue, Func: Sum}},
	})
	assert.Equal(t, []string{"RJ / books", "SP / toys"}, keys(multi))
	assert.InDelta(t, 18.0, multi.Rows[1].Values[0].Number, 1e-9)

	scalar := Aggregate(view, Spec{
		Metrics: []Metric{
			{Name: "avg_price", Column: models.ColPrice, Func: Mean},
			{Name: "revenue", Column: models.ColRevenue, Func: Sum},
		},
	})
	require.Len(t, scalar.Rows, 1)
	assert.Equal(t, "all", scalar.Rows[0].Label)
	assert.InDelta(t, 35.0/3, scalar.Rows[0].Values[0].Number, 1e-9)
	assert.InDelta(t, 38.0, scalar.Rows[0].Values[1].Number, 1e-9)
}

func TestAggregate_DoesNotModifyView(t *testing.T) {
	view := threeRows(t)
	before := view.Indices()
	Aggregate(view, Ranking(models.ColCategory, itemCount, 1, false))
	assert.Equal(t, before, view.Indices())
}

func TestValue_MarshalJSON(t *testing.T) {
	b, err := json.Marshal([]Value{{Number: 1.5, Valid: true}, {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null]`, string(b))
}

func BenchmarkAggregate_Ranking(b *testing.B) {
	rows := make([][]string, 50000)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("cat%d", i%70), "2017-01-02"}
	}
	view := normalized(b, []string{"product_category_name", "order_purchase_timestamp"}, rows)
	spec := Ranking(models.ColCategory, itemCount, 10, true)

	for b.Loop() {
		Aggregate(view, spec)
	}
}
