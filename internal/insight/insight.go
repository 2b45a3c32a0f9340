// Package insight derives caption-ready facts from aggregation results.
package insight

import (
	"fmt"
	"strconv"
	"strings"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/models"
)

type Kind string

const (
	// Top reports the first row of a ranking.
	Top Kind = "top"
	// Bottom reports the first row of an ascending ranking.
	Bottom Kind = "bottom"
	// Extremes reports the maximum and minimum rows of a trend.
	Extremes Kind = "extremes"
	// Mean reports a single mean value.
	Mean Kind = "mean"
)

const noData = "no data"

// Extract summarizes metric index metric of result. Ties resolve to the first
// row in the result's existing order. Empty results and undefined values
// produce an unavailable insight with a "no data" caption.
func Extract(result *aggregate.Result, kind Kind, metric int) models.Insight {
	if result == nil || result.Empty() || metric < 0 || metric >= len(result.Metrics) {
		return unavailable()
	}
	name := result.Metrics[metric].Name

	switch kind {
	case Top, Bottom:
		row := result.Rows[0]
		v := row.Values[metric]
		if !v.Valid || row.Size == 0 {
			return unavailable()
		}
		caption := fmt.Sprintf("%s leads with %s", row.Label, quantity(v.Number, name))
		if kind == Bottom {
			caption = fmt.Sprintf("%s has the fewest %s (%s)", row.Label, name, formatNumber(v.Number))
		}
		return models.Insight{
			Available: true,
			Label:     row.Label,
			Value:     v.Number,
			Caption:   caption,
		}

	case Extremes:
		maxIdx, minIdx := -1, -1
		for i, row := range result.Rows {
			v := row.Values[metric]
			if !v.Valid {
				continue
			}
			if maxIdx < 0 || v.Number > result.Rows[maxIdx].Values[metric].Number {
				maxIdx = i
			}
			if minIdx < 0 || v.Number < result.Rows[minIdx].Values[metric].Number {
				minIdx = i
			}
		}
		if maxIdx < 0 || !result.Observed() {
			return unavailable()
		}
		hi, lo := result.Rows[maxIdx], result.Rows[minIdx]
		return models.Insight{
			Available: true,
			Label:     hi.Label,
			Value:     hi.Values[metric].Number,
			MinLabel:  lo.Label,
			MinValue:  lo.Values[metric].Number,
			Caption: fmt.Sprintf("Busiest: %s (%s). Slowest: %s (%s)",
				hi.Label, quantity(hi.Values[metric].Number, name),
				lo.Label, quantity(lo.Values[metric].Number, name)),
		}

	case Mean:
		v := result.Rows[0].Values[metric]
		if !v.Valid {
			return unavailable()
		}
		return models.Insight{
			Available: true,
			Label:     name,
			Value:     v.Number,
			Caption:   fmt.Sprintf("Average %s: %.2f", name, v.Number),
		}
	}
	return unavailable()
}

func unavailable() models.Insight {
	return models.Insight{Caption: noData}
}

// quantity formats v with its unit, singular for exactly one ("1 item").
func quantity(v float64, unit string) string {
	if v == 1 {
		unit = strings.TrimSuffix(unit, "s")
	}
	return formatNumber(v) + " " + unit
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
