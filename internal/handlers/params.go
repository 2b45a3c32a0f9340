package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

// filterSignals mirrors the dashboard's Datastar filter signals. Multi-value
// filters arrive as comma-separated strings.
type filterSignals struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	States     string `json:"states"`
	Categories string `json:"categories"`
	YearFrom   int    `json:"yearFrom"`
	YearTo     int    `json:"yearTo"`
	TopN       int    `json:"topN"`
	Year       int    `json:"year"`
	ZeroFill   *bool  `json:"zeroFill"`
}

func (s filterSignals) query(defaults services.Defaults) (filter.Filters, services.TrendQuery, error) {
	f := filter.Filters{
		States:     splitList(s.States),
		Categories: splitList(s.Categories),
		YearFrom:   s.YearFrom,
		YearTo:     s.YearTo,
		TopN:       s.TopN,
	}
	var err error
	if f.Start, err = parseDate("start", s.Start); err != nil {
		return filter.Filters{}, services.TrendQuery{}, err
	}
	if f.End, err = parseDate("end", s.End); err != nil {
		return filter.Filters{}, services.TrendQuery{}, err
	}
	q := services.TrendQuery{Year: s.Year, ZeroFill: defaults.ZeroFill}
	if s.ZeroFill != nil {
		q.ZeroFill = *s.ZeroFill
	}
	return f, q, nil
}

// parseQuery reads filter and trend parameters from the URL query.
func parseQuery(values url.Values, defaults services.Defaults) (filter.Filters, services.TrendQuery, error) {
	s := filterSignals{
		Start:      values.Get("start"),
		End:        values.Get("end"),
		States:     strings.Join(values["state"], ","),
		Categories: strings.Join(values["category"], ","),
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"year_from", &s.YearFrom},
		{"year_to", &s.YearTo},
		{"n", &s.TopN},
		{"year", &s.Year},
	}
	for _, p := range ints {
		v := values.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter.Filters{}, services.TrendQuery{}, fmt.Errorf("%w: %s must be an integer, got %q", filter.ErrInvalidRange, p.name, v)
		}
		*p.dst = n
	}
	if v := values.Get("zero_fill"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter.Filters{}, services.TrendQuery{}, fmt.Errorf("%w: zero_fill must be a boolean, got %q", filter.ErrInvalidRange, v)
		}
		s.ZeroFill = &b
	}
	return s.query(defaults)
}

func parseDate(name, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", filter.ErrInvalidRange, name, v)
	}
	return t, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// appError maps domain errors onto the HTTP error envelope.
func appError(err error) error {
	switch {
	case stderrors.Is(err, services.ErrNotLoaded):
		return errors.ServiceUnavailable("No dataset is loaded")
	case stderrors.Is(err, filter.ErrInvalidRange), stderrors.Is(err, filter.ErrInvalidTopN):
		return errors.ValidationWrap(err, "Invalid filter configuration")
	}
	return err
}

func requestID(r *http.Request) string {
	return observability.GetRequestID(r.Context())
}
