package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"ecommerce-dashboard/internal/models"
)

const periodLayout = "2006-01"

// fillTimeBuckets adds empty rows for every expected time bucket that has no
// observations. Non-time keys are left alone. Nothing is filled when the input
// produced no rows and no explicit bounds were given.
func fillTimeBuckets(rows []Row, spec Spec) []Row {
	col := spec.GroupBy[0]
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[r.Keys[0]] = true
	}

	var expected []string
	switch col {
	case models.ColMonth:
		if len(rows) == 0 {
			return rows
		}
		for m := 1; m <= 12; m++ {
			expected = append(expected, strconv.Itoa(m))
		}
	case models.ColPeriod:
		from, to, ok := periodBounds(rows, spec)
		if !ok {
			return rows
		}
		for t := from; !t.After(to); t = t.AddDate(0, 1, 0) {
			expected = append(expected, t.Format(periodLayout))
		}
	default:
		return rows
	}

	for _, k := range expected {
		if !seen[k] {
			rows = append(rows, emptyRow(spec.GroupBy, []string{k}, spec.Metrics))
		}
	}
	return rows
}

// periodBounds resolves the first and last month to fill: explicit bounds win,
// then the restricted year, then the observed range.
func periodBounds(rows []Row, spec Spec) (from, to time.Time, ok bool) {
	if spec.Year != 0 {
		from = time.Date(spec.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(spec.Year, time.December, 1, 0, 0, 0, 0, time.UTC)
	} else {
		for _, r := range rows {
			t, err := time.Parse(periodLayout, r.Keys[0])
			if err != nil {
				continue
			}
			if from.IsZero() || t.Before(from) {
				from = t
			}
			if to.IsZero() || t.After(to) {
				to = t
			}
		}
	}
	if !spec.FillFrom.IsZero() {
		from = now.New(spec.FillFrom.UTC()).BeginningOfMonth()
	}
	if !spec.FillTo.IsZero() {
		to = now.New(spec.FillTo.UTC()).BeginningOfMonth()
	}
	if from.IsZero() || to.IsZero() || from.After(to) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// sortRows orders rows deterministically. ValueDesc breaks ties by natural key
// order; ValueAsc is its exact reverse, so a bottom ranking is always the tail
// of the matching top ranking. Undefined values sort last in both.
func sortRows(rows []Row, order Order, metric int) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		switch order {
		case ValueDesc:
			if c := compareValues(a, b, metric, true); c != 0 {
				return c
			}
		case ValueAsc:
			if c := compareValues(a, b, metric, false); c != 0 {
				return c
			}
			return compareKeys(b.Keys, a.Keys)
		}
		return compareKeys(a.Keys, b.Keys)
	})
}

func compareValues(a, b Row, metric int, desc bool) int {
	if metric < 0 || metric >= len(a.Values) || metric >= len(b.Values) {
		return 0
	}
	av, bv := a.Values[metric], b.Values[metric]
	switch {
	case !av.Valid && !bv.Valid:
		return 0
	case !av.Valid:
		return 1
	case !bv.Valid:
		return -1
	}
	if desc {
		return cmp.Compare(bv.Number, av.Number)
	}
	return cmp.Compare(av.Number, bv.Number)
}

func compareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareKey(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// compareKey compares integers numerically and everything else as text, so
// month "10" sorts after "9".
func compareKey(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}

func label(groupBy []models.Column, keys []string) string {
	if len(keys) == 0 {
		return "all"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = keyLabel(groupBy[i], k)
	}
	return strings.Join(parts, " / ")
}

func keyLabel(col models.Column, key string) string {
	switch col {
	case models.ColMonth:
		if m, err := strconv.Atoi(key); err == nil && m >= 1 && m <= 12 {
			return time.Month(m).String()
		}
	case models.ColPeriod:
		if t, err := time.Parse(periodLayout, key); err == nil {
			return fmt.Sprintf("%s %d", t.Month().String()[:3], t.Year())
		}
	}
	return key
}
