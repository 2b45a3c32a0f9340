package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Empty(t *testing.T) {
	_, err := Bar("Top categories", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyChart)

	_, err = Line("Trend", []string{"Jan"})
	assert.ErrorIs(t, err, ErrEmptyChart)
}

func TestBar(t *testing.T) {
	u, err := Bar("Top categories", []string{"toys", "books"}, []float64{2, 1})
	require.NoError(t, err)
	assert.Contains(t, u, "quickchart.io")
}

func TestNewConfig(t *testing.T) {
	cfg := newConfig("line", "Trend", []string{"Jan", "Feb"}, []Series{
		{Name: "orders", Values: []float64{1, 2}},
		{Name: "revenue", Values: []float64{10, 20}},
	})

	assert.Equal(t, "line", cfg.Type)
	require.Len(t, cfg.Data.Datasets, 2)
	assert.Equal(t, "revenue", cfg.Data.Datasets[1].Label)
	require.NotNil(t, cfg.Options)
	assert.Equal(t, "Trend", cfg.Options.Title.Text)

	assert.Nil(t, newConfig("bar", "", []string{"a"}, nil).Options)
}
