package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

const (
	MinTopN     = 3
	MaxTopN     = 15
	DefaultTopN = 5
)

var (
	ErrInvalidRange = errors.New("invalid filter range")
	ErrInvalidTopN  = errors.New("invalid top-n")
)

// Filters are the user-selected parameters of one dashboard interaction.
// Zero values mean "no restriction".
type Filters struct {
	Start      time.Time `json:"start,omitzero"`
	End        time.Time `json:"end,omitzero"`
	States     []string  `json:"states,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	YearFrom   int       `json:"year_from,omitempty"`
	YearTo     int       `json:"year_to,omitempty"`
	TopN       int       `json:"top_n,omitempty"`
}

// Validate rejects configurations that must be corrected by the user before
// any aggregation runs.
func (f Filters) Validate() error {
	if !f.Start.IsZero() && !f.End.IsZero() && dayStart(f.Start).After(dayStart(f.End)) {
		return fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidRange, f.Start.Format(time.DateOnly), f.End.Format(time.DateOnly))
	}
	if f.YearFrom != 0 && f.YearTo != 0 && f.YearFrom > f.YearTo {
		return fmt.Errorf("%w: year %d is after year %d", ErrInvalidRange, f.YearFrom, f.YearTo)
	}
	if f.TopN != 0 && (f.TopN < MinTopN || f.TopN > MaxTopN) {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidTopN, f.TopN, MinTopN, MaxTopN)
	}
	return nil
}

// Limit returns TopN, or the default when unset.
func (f Filters) Limit() int {
	if f.TopN == 0 {
		return DefaultTopN
	}
	return f.TopN
}

// Predicates returns the active predicates. Inactive filters contribute
// nothing, so an empty selection passes every row.
func (f Filters) Predicates() []Predicate {
	var preds []Predicate
	if !f.Start.IsZero() || !f.End.IsZero() {
		preds = append(preds, NewDateRange(f.Start, f.End))
	}
	if len(f.States) > 0 {
		preds = append(preds, NewSetMembership(models.ColCustomerState, f.States))
	}
	if len(f.Categories) > 0 {
		preds = append(preds, NewSetMembership(models.ColCategory, f.Categories))
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		preds = append(preds, YearRange{From: f.YearFrom, To: f.YearTo})
	}
	return preds
}

// Apply validates the filters and returns a new view of the matching rows.
func Apply(view *dataset.View, f Filters) (*dataset.View, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return Select(view, f.Predicates()...), nil
}

// Select returns the rows that satisfy every predicate. With no predicates it
// returns a copy of the view.
func Select(view *dataset.View, preds ...Predicate) *dataset.View {
	return view.Select(func(tx *models.Transaction) bool {
		for _, p := range preds {
			if !p.Match(tx) {
				return false
			}
		}
		return true
	})
}

// Predicate is one independent row condition.
type Predicate interface {
	Match(tx *models.Transaction) bool
}

// DateRange matches rows whose designated timestamp falls within [Start, End],
// both days inclusive. Rows without a valid timestamp never match.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) DateRange {
	r := DateRange{}
	if !start.IsZero() {
		r.Start = dayStart(start)
	}
	if !end.IsZero() {
		r.End = now.New(end.UTC()).EndOfDay()
	}
	return r
}

func (r DateRange) Match(tx *models.Transaction) bool {
	if !tx.OrderTime.Valid() {
		return false
	}
	t := tx.OrderTime.Time
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// SetMembership matches rows whose column value is one of the selected values,
// compared case-insensitively. Missing values never match.
type SetMembership struct {
	Column models.Column
	values map[string]struct{}
}

func NewSetMembership(col models.Column, values []string) SetMembership {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = struct{}{}
		}
	}
	return SetMembership{Column: col, values: set}
}

func (s SetMembership) Match(tx *models.Transaction) bool {
	if len(s.values) == 0 {
		return true
	}
	v, ok := tx.Value(s.Column)
	if !ok {
		return false
	}
	_, hit := s.values[strings.ToLower(v)]
	return hit
}

// YearRange matches rows whose year lies in [From, To]. A zero bound is open.
type YearRange struct {
	From int
	To   int
}

func (y YearRange) Match(tx *models.Transaction) bool {
	if tx.Year == 0 {
		return false
	}
	if y.From != 0 && tx.Year < y.From {
		return false
	}
	if y.To != 0 && tx.Year > y.To {
		return false
	}
	return true
}

func dayStart(t time.Time) time.Time {
	return now.New(t.UTC()).BeginningOfDay()
}
