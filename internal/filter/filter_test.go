package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

func ts(s string) models.Timestamp {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return models.Timestamp{Time: t, Status: models.TimeValid}
}

func tx(id, state, category string, at models.Timestamp) models.Transaction {
	t := models.Transaction{OrderID: id, CustomerState: state, Category: category, CategoryLabel: category, OrderTime: at}
	if at.Valid() {
		t.Year = at.Time.Year()
		t.Month = int(at.Time.Month())
	}
	return t
}

func testView() *dataset.View {
	rows := []models.Transaction{
		tx("o1", "SP", "toys", ts("2017-03-05 00:00")),
		tx("o2", "SP", "books", ts("2017-03-31 23:59")),
		tx("o3", "RJ", "toys", ts("2017-04-01 00:00")),
		tx("o4", "RJ", "books", ts("2018-01-10 12:00")),
		tx("o5", "MG", "", models.Timestamp{Status: models.TimeInvalid, Raw: "bad"}),
		tx("o6", "", "toys", models.Timestamp{}),
	}
	return dataset.New(rows, nil, models.ColPurchasedAt).All()
}

func ids(v *dataset.View) []string {
	out := make([]string, v.Len())
	for i := range out {
		out[i] = v.Row(i).OrderID
	}
	return out
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestApply_EmptySelectionPassesThrough(t *testing.T) {
	view := testView()

	none, err := Apply(view, Filters{})
	require.NoError(t, err)
	emptyStates, err := Apply(view, Filters{States: []string{}})
	require.NoError(t, err)
	blankStates, err := Apply(view, Filters{States: []string{" "}})
	require.NoError(t, err)

	assert.Equal(t, ids(view), ids(none))
	assert.Equal(t, ids(none), ids(emptyStates))
	assert.Equal(t, ids(none), ids(blankStates))
	assert.NotSame(t, view, none, "apply returns a fresh view")
}

func TestApply_Commutative(t *testing.T) {
	view := testView()
	state := NewSetMembership(models.ColCustomerState, []string{"SP", "RJ"})
	category := NewSetMembership(models.ColCategory, []string{"toys"})

	stateFirst := Select(Select(view, state), category)
	categoryFirst := Select(Select(view, category), state)
	combined := Select(view, category, state)

	assert.Equal(t, []string{"o1", "o3"}, ids(stateFirst))
	assert.Equal(t, ids(stateFirst), ids(categoryFirst))
	assert.Equal(t, ids(stateFirst), ids(combined))
}

func TestDateRange_InclusiveDays(t *testing.T) {
	view := testView()

	got, err := Apply(view, Filters{Start: date("2017-03-05"), End: date("2017-03-31")})
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, ids(got))

	sameDay, err := Apply(view, Filters{Start: date("2017-04-01"), End: date("2017-04-01")})
	require.NoError(t, err)
	assert.Equal(t, []string{"o3"}, ids(sameDay))

	openEnd, err := Apply(view, Filters{Start: date("2017-04-01")})
	require.NoError(t, err)
	assert.Equal(t, []string{"o3", "o4"}, ids(openEnd), "rows without a valid timestamp are excluded")
}

func TestSetMembership_CaseInsensitive(t *testing.T) {
	got := Select(testView(), NewSetMembership(models.ColCustomerState, []string{"sp"}))
	assert.Equal(t, []string{"o1", "o2"}, ids(got))

	missing := Select(testView(), NewSetMembership(models.ColCategory, []string{"toys", "books"}))
	assert.NotContains(t, ids(missing), "o5", "missing values never match")
}

func TestYearRange(t *testing.T) {
	got, err := Apply(testView(), Filters{YearFrom: 2018})
	require.NoError(t, err)
	assert.Equal(t, []string{"o4"}, ids(got))

	got, err = Apply(testView(), Filters{YearFrom: 2017, YearTo: 2017})
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2", "o3"}, ids(got))
}

func TestFilters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		wantErr error
	}{
		{"empty", Filters{}, nil},
		{"same day", Filters{Start: date("2017-03-05"), End: date("2017-03-05")}, nil},
		{"start after end", Filters{Start: date("2017-03-06"), End: date("2017-03-05")}, ErrInvalidRange},
		{"years reversed", Filters{YearFrom: 2018, YearTo: 2017}, ErrInvalidRange},
		{"top n too small", Filters{TopN: 2}, ErrInvalidTopN},
		{"top n too large", Filters{TopN: 16}, ErrInvalidTopN},
		{"top n bounds", Filters{TopN: 15}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filters.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApply_RejectsStartAfterEnd(t *testing.T) {
	view, err := Apply(testView(), Filters{Start: date("2018-01-01"), End: date("2017-01-01")})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Nil(t, view)
}

func TestFilters_Limit(t *testing.T) {
	assert.Equal(t, DefaultTopN, Filters{}.Limit())
	assert.Equal(t, 10, Filters{TopN: 10}.Limit())
}
