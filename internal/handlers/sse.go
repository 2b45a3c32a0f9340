package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

var sectionTemplate = template.Must(template.New("section").Parse(`
<div id="{{.ID}}" class="section-content" data-status="{{.Status}}">
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{else}}
{{if .Caption}}<p class="insight">{{.Caption}}</p>{{end}}
{{if .ChartURL}}<img class="chart" src="{{.ChartURL}}" alt="{{.Title}}" loading="lazy">{{end}}
<table class="modern-table">
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>{{end}}
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<div id="filter-error" class="filter-error">{{.}}</div>`))

// fragment is the render model of one dashboard section.
type fragment struct {
	ID       string
	Title    string
	Status   models.SectionStatus
	Notice   string
	Caption  string
	ChartURL string
	Headers  []string
	Rows     [][]string
}

func newFragment[T any](id string, sec models.Section[T], headers []string, cells func(T) []string) fragment {
	fr := fragment{
		ID:       id,
		Title:    sec.Title,
		Status:   sec.Status,
		Notice:   sec.Notice,
		ChartURL: sec.ChartURL,
		Headers:  headers,
	}
	if sec.Insight != nil {
		fr.Caption = sec.Insight.Caption
	}
	for _, row := range sec.Rows {
		fr.Rows = append(fr.Rows, cells(row))
	}
	return fr
}

func rankingFragment(id string, sec models.Section[models.RankingRow]) fragment {
	return newFragment(id, sec, []string{"Category", "Items"}, func(r models.RankingRow) []string {
		return []string{r.Category, formatCount(r.Count)}
	})
}

func countFragment(id, keyHeader, countHeader string, sec models.Section[models.CountRow]) fragment {
	return newFragment(id, sec, []string{keyHeader, countHeader}, func(r models.CountRow) []string {
		return []string{r.Label, formatCount(r.Count)}
	})
}

func trendFragment(id string, sec models.Section[models.TrendRow]) fragment {
	return newFragment(id, sec, []string{"Period", "Orders", "Items", "Revenue"}, func(r models.TrendRow) []string {
		return []string{r.Label, formatCount(r.Orders), formatCount(r.Items), fmt.Sprintf("%.2f", r.Revenue)}
	})
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *SSEHandlers) render(fr fragment) (string, error) {
	var buf strings.Builder
	err := sectionTemplate.Execute(&buf, fr)
	return buf.String(), err
}

// stream reads the filter signals, runs fn and patches the resulting fragments.
// Filter and load errors are patched into the error element instead.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, fn func(filter.Filters, services.TrendQuery) ([]fragment, map[string]any, error)) {
	var signals filterSignals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)

	if readErr != nil {
		h.logger.Warn("read filter signals", "error", readErr, "request_id", requestID(r))
		h.patchError(sse, "Could not read filter selection.")
		return
	}

	f, q, err := signals.query(h.analytics.Defaults())
	if err == nil {
		var frs []fragment
		var extra map[string]any
		frs, extra, err = fn(f, q)
		if err == nil {
			h.patch(sse, frs, extra)
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
			return
		}
	}

	h.logger.Warn("dashboard update rejected", "error", err, "request_id", requestID(r))
	h.patchError(sse, userMessage(err))
}

func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, frs []fragment, extra map[string]any) {
	for _, fr := range frs {
		html, err := h.render(fr)
		if err != nil {
			h.logger.Error("render section", "section", fr.ID, "error", err)
			continue
		}
		sse.PatchElements(html)
	}

	signals := map[string]any{"filterError": ""}
	for k, v := range extra {
		signals[k] = v
	}
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)
}

func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, msg string) {
	var buf strings.Builder
	if err := errorTemplate.Execute(&buf, msg); err != nil {
		h.logger.Error("render filter error", "error", err)
		return
	}
	sse.PatchElements(buf.String())
	jsonData, _ := json.Marshal(map[string]any{"filterError": msg})
	sse.PatchSignals(jsonData)
}

func userMessage(err error) string {
	switch {
	case stderrors.Is(err, services.ErrNotLoaded):
		return "No dataset is loaded."
	case stderrors.Is(err, filter.ErrInvalidRange), stderrors.Is(err, filter.ErrInvalidTopN):
		return err.Error()
	}
	return "The dashboard could not be updated."
}

func (h *SSEHandlers) HandleTopCategories(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, _ services.TrendQuery) ([]fragment, map[string]any, error) {
		sec, err := h.analytics.TopCategories(f)
		if err != nil {
			return nil, nil, err
		}
		return []fragment{rankingFragment("top-categories-content", sec)}, nil, nil
	})
}

func (h *SSEHandlers) HandleBottomCategories(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, _ services.TrendQuery) ([]fragment, map[string]any, error) {
		sec, err := h.analytics.BottomCategories(f)
		if err != nil {
			return nil, nil, err
		}
		return []fragment{rankingFragment("bottom-categories-content", sec)}, nil, nil
	})
}

func (h *SSEHandlers) HandleSatisfaction(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, _ services.TrendQuery) ([]fragment, map[string]any, error) {
		sec, err := h.analytics.Satisfaction(f)
		if err != nil {
			return nil, nil, err
		}
		return []fragment{countFragment("satisfaction-content", "Rating", "Reviews", sec)}, nil, nil
	})
}

func (h *SSEHandlers) HandleStateDistribution(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, _ services.TrendQuery) ([]fragment, map[string]any, error) {
		sec, err := h.analytics.StateDistribution(f)
		if err != nil {
			return nil, nil, err
		}
		return []fragment{countFragment("states-content", "State", "Customers", sec)}, nil, nil
	})
}

func (h *SSEHandlers) HandleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, q services.TrendQuery) ([]fragment, map[string]any, error) {
		sec, err := h.analytics.MonthlyTrend(f, q)
		if err != nil {
			return nil, nil, err
		}
		return []fragment{trendFragment("monthly-content", sec)}, nil, nil
	})
}

func (h *SSEHandlers) HandleYearlyTrend(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, _ services.TrendQuery) ([]fragment, map[string]any, error) {
		sec, err := h.analytics.YearlyTrend(f)
		if err != nil {
			return nil, nil, err
		}
		return []fragment{trendFragment("yearly-content", sec)}, nil, nil
	})
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(f filter.Filters, q services.TrendQuery) ([]fragment, map[string]any, error) {
		ov, err := h.analytics.Overview(f, q)
		if err != nil {
			return nil, nil, err
		}
		frs := []fragment{
			rankingFragment("top-categories-content", ov.TopCategories),
			rankingFragment("bottom-categories-content", ov.BottomCategories),
			countFragment("satisfaction-content", "Rating", "Reviews", ov.Satisfaction),
			countFragment("states-content", "State", "Customers", ov.StateDistribution),
			trendFragment("monthly-content", ov.MonthlyTrend),
			trendFragment("yearly-content", ov.YearlyTrend),
		}
		return frs, map[string]any{"matchedRows": ov.MatchedRows}, nil
	})
}
