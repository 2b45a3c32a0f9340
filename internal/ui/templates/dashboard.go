// Package templates renders the dashboard page shell. Section contents are
// patched in over SSE.
package templates

//go:generate templ generate -f dashboard.templ

import (
	"encoding/json"
	"fmt"

	"ecommerce-dashboard/internal/models"
)

// Page configures the initial filter state of the dashboard.
type Page struct {
	Facets   models.Facets
	TopN     int
	ZeroFill bool
	// Loaded is false when no dataset is available; the page then shows a
	// load error and no sections.
	Loaded bool
}

type section struct {
	id    string
	title string
	sse   string
}

var sections = []section{
	{"top-categories-content", "Best-selling categories", "/sse/top-categories"},
	{"bottom-categories-content", "Least-selling categories", "/sse/bottom-categories"},
	{"satisfaction-content", "Customer satisfaction", "/sse/satisfaction"},
	{"states-content", "Customers by state", "/sse/state-distribution"},
	{"monthly-content", "Monthly trend", "/sse/monthly-trend"},
	{"yearly-content", "Yearly trend", "/sse/yearly-trend"},
}

func initialSignals(p Page) (string, error) {
	b, err := json.Marshal(map[string]any{
		"start":       "",
		"end":         "",
		"states":      "",
		"categories":  "",
		"year":        0,
		"yearFrom":    0,
		"yearTo":      0,
		"topN":        p.TopN,
		"zeroFill":    p.ZeroFill,
		"matchedRows": 0,
		"filterError": "",
	})
	if err != nil {
		return "", fmt.Errorf("marshal signals: %w", err)
	}
	return string(b), nil
}
