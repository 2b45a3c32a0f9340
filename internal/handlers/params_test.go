package handlers

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/services"
)

func TestParseQuery(t *testing.T) {
	values, err := url.ParseQuery("start=2017-03-01&end=2017-03-31&state=SP&state=RJ,MG&category=toys&year_from=2017&n=7&year=2017&zero_fill=false")
	require.NoError(t, err)

	f, q, err := parseQuery(values, services.Defaults{TopN: 5, ZeroFill: true})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), f.Start)
	assert.Equal(t, time.Date(2017, 3, 31, 0, 0, 0, 0, time.UTC), f.End)
	assert.Equal(t, []string{"SP", "RJ", "MG"}, f.States)
	assert.Equal(t, []string{"toys"}, f.Categories)
	assert.Equal(t, 2017, f.YearFrom)
	assert.Equal(t, 7, f.TopN)
	assert.Equal(t, services.TrendQuery{Year: 2017, ZeroFill: false}, q)
}

func TestParseQuery_Defaults(t *testing.T) {
	f, q, err := parseQuery(url.Values{}, services.Defaults{TopN: 5, ZeroFill: true})
	require.NoError(t, err)
	assert.Equal(t, filter.Filters{}, f)
	assert.True(t, q.ZeroFill)
}

func TestParseQuery_Errors(t *testing.T) {
	for _, raw := range []string{"start=yesterday", "end=2017-13-01", "n=five", "zero_fill=sometimes"} {
		t.Run(raw, func(t *testing.T) {
			values, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, _, err = parseQuery(values, services.Defaults{})
			assert.ErrorIs(t, err, filter.ErrInvalidRange)
		})
	}
}

func TestFilterSignals_Query(t *testing.T) {
	off := false
	s := filterSignals{States: " SP , ,rj", TopN: 3, ZeroFill: &off}

	f, q, err := s.query(services.Defaults{ZeroFill: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"SP", "rj"}, f.States)
	assert.Nil(t, f.Categories)
	assert.False(t, q.ZeroFill)
}
