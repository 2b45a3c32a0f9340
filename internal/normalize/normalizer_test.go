package normalize

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

var testHeader = []string{
	"order_id", "customer_unique_id", "customer_state", "product_category_name",
	"order_purchase_timestamp", "price", "freight_value", "review_score",
}

func testRaw() *dataset.RawTable {
	return dataset.NewRawTable(testHeader, [][]string{
		{"o1", "c1", "sp", "brinquedos", "2017-03-05", "R$10,00", "2.0", "5"},
		{"o2", "c2", "SP", "brinquedos", "2017-03-20 14:00:00", "R$5,00", "1.0", "4"},
		{"o3", "c3", "RJ", "livros", "2017-04-01", "R$20,00", "0.0", ""},
		{"o4", "c1", "MG", "livros", "yesterday", "", "3,5", "7"},
		{"o5", "c4", "", "", "", "oops", "", "3"},
	})
}

func TestNormalizer_Normalize(t *testing.T) {
	n := New(nil)
	ds, diag, err := n.Normalize(context.Background(), testRaw())
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())

	assert.Equal(t, 5, diag.TotalRows)
	assert.Equal(t, 5, diag.KeptRows)
	assert.Equal(t, 1, diag.InvalidTimestamps)
	assert.Equal(t, 1, diag.MissingTimestamps)
	assert.Equal(t, 1, diag.PriceParseFailures)
	assert.Equal(t, 1, diag.InvalidReviewScores)
	assert.Equal(t, models.ColPurchasedAt, diag.TimeColumn)
	assert.Contains(t, diag.MissingColumns, models.ColApprovedAt)

	first := ds.Row(0)
	assert.Equal(t, "SP", first.CustomerState)
	assert.Equal(t, "brinquedos", first.CategoryLabel)
	assert.InDelta(t, 12.0, first.Revenue, 1e-9)
	assert.Equal(t, 2017, first.Year)
	assert.Equal(t, 3, first.Month)
	assert.Equal(t, 5, first.ReviewScore)

	invalid := ds.Row(3)
	assert.Equal(t, models.TimeInvalid, invalid.OrderTime.Status)
	assert.Equal(t, "yesterday", invalid.OrderTime.Raw)
	assert.Zero(t, invalid.Year)
	assert.False(t, invalid.Price.Present)
	assert.InDelta(t, 3.5, invalid.Revenue, 1e-9)
	assert.Zero(t, invalid.ReviewScore)

	caps := ds.Capabilities()
	assert.True(t, caps.Has(models.ColCategory, models.ColRevenue, models.ColYear))
	assert.False(t, caps.Has(models.ColApprovedAt))
	assert.Equal(t, []models.Column{models.ColPayment}, caps.Missing(models.ColPrice, models.ColPayment))
}

func TestNormalizer_DropInvalidTimestamps(t *testing.T) {
	n := New(nil, WithDropInvalidTimestamps(true))
	ds, diag, err := n.Normalize(context.Background(), testRaw())
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, 1, diag.DroppedRows)
	for i := 0; i < ds.Len(); i++ {
		assert.NotEqual(t, models.TimeInvalid, ds.Row(i).OrderTime.Status)
	}
}

func TestNormalizer_TimeColumnFallback(t *testing.T) {
	raw := dataset.NewRawTable(
		[]string{"order_id", "order_approved_at", "price"},
		[][]string{{"o1", "2018-02-01 10:00:00", "1"}},
	)
	ds, diag, err := New(nil).Normalize(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, models.ColApprovedAt, diag.TimeColumn)
	assert.Equal(t, models.ColApprovedAt, ds.TimeColumn())
	assert.Equal(t, 2018, ds.Row(0).Year)
}

func TestNormalizer_NoTimeColumn(t *testing.T) {
	raw := dataset.NewRawTable([]string{"order_id", "price"}, [][]string{{"o1", "1"}})
	ds, diag, err := New(nil).Normalize(context.Background(), raw)
	require.NoError(t, err)

	assert.Empty(t, diag.TimeColumn)
	assert.Zero(t, diag.MissingTimestamps)
	assert.False(t, ds.Capabilities().Has(models.ColYear))
}

func TestNormalizer_CategoryTranslations(t *testing.T) {
	n := New(nil, WithCategoryTranslations(map[string]string{"brinquedos": "toys"}))
	ds, _, err := n.Normalize(context.Background(), testRaw())
	require.NoError(t, err)

	assert.Equal(t, "toys", ds.Row(0).CategoryLabel)
	assert.Equal(t, "brinquedos", ds.Row(0).Category)
	assert.Equal(t, "livros", ds.Row(2).CategoryLabel)
}

func TestNormalizer_EnglishColumnWins(t *testing.T) {
	raw := dataset.NewRawTable(
		[]string{"product_category_name", "product_category_name_english"},
		[][]string{{"brinquedos", "toys"}, {"livros", ""}},
	)
	n := New(nil, WithCategoryTranslations(map[string]string{"brinquedos": "playthings", "livros": "books"}))
	ds, _, err := n.Normalize(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "toys", ds.Row(0).CategoryLabel)
	assert.Equal(t, "books", ds.Row(1).CategoryLabel)
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := New(nil, WithCategoryTranslations(map[string]string{"livros": "books"}))
	first, _, err := n.Normalize(context.Background(), testRaw())
	require.NoError(t, err)

	second, _, err := n.Normalize(context.Background(), first.Raw())
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Columns(), second.Columns())
	assert.Equal(t, first.TimeColumn(), second.TimeColumn())
	for i := 0; i < first.Len(); i++ {
		assert.Equal(t, *first.Row(i), *second.Row(i), "row %d", i)
	}
	assert.Equal(t, first.Raw(), second.Raw())
}

func TestNormalizer_RevenueConservation(t *testing.T) {
	ds, _, err := New(nil).Normalize(context.Background(), testRaw())
	require.NoError(t, err)

	var revenue, price, freight float64
	for i := 0; i < ds.Len(); i++ {
		tx := ds.Row(i)
		revenue += tx.Revenue
		price += tx.Price.OrZero()
		freight += tx.Freight.OrZero()
	}
	assert.InDelta(t, price+freight, revenue, 1e-9)
	assert.InDelta(t, 41.5, revenue, 1e-9)
}

func TestNormalizer_ParallelBatchesKeepOrder(t *testing.T) {
	rows := make([][]string, 2500)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("o%d", i), "c", "SP", "cat", "2017-01-02", fmt.Sprintf("%d", i), "0", ""}
	}
	raw := dataset.NewRawTable(testHeader, rows)

	ds, diag, err := New(nil, WithBatchSize(100), WithWorkers(4)).Normalize(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, len(rows), ds.Len())
	assert.Equal(t, len(rows), diag.KeptRows)
	for i := 0; i < ds.Len(); i++ {
		require.Equal(t, fmt.Sprintf("o%d", i), ds.Row(i).OrderID)
		require.InDelta(t, float64(i), ds.Row(i).Price.Value, 1e-9)
	}
}

func TestNormalizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(nil).Normalize(ctx, testRaw())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizer_DoesNotModifyInput(t *testing.T) {
	raw := testRaw()
	before := raw.Fingerprint()
	_, _, err := New(nil).Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw.Fingerprint())
}

func BenchmarkNormalizer_Normalize(b *testing.B) {
	rows := make([][]string, 10000)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("o%d", i), "c", "SP", "cat", "2017-01-02 10:00:00", "R$ 1.234,56", "10,5", "4"}
	}
	raw := dataset.NewRawTable(testHeader, rows)
	n := New(nil)

	for b.Loop() {
		if _, _, err := n.Normalize(context.Background(), raw); err != nil {
			b.Fatal(err)
		}
	}
}
