package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/charts"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/insight"
	"ecommerce-dashboard/internal/models"
)

const (
	noticeNoData = "No data for this selection."
	metricItems  = "items"
)

// TrendQuery selects the monthly trend variant. A non-zero Year buckets by
// calendar month within that year; otherwise buckets are year-month periods.
type TrendQuery struct {
	Year     int
	ZeroFill bool
}

func (a *Analytics) TopCategories(f filter.Filters) (models.Section[models.RankingRow], error) {
	return a.ranking(f, true)
}

func (a *Analytics) BottomCategories(f filter.Filters) (models.Section[models.RankingRow], error) {
	return a.ranking(f, false)
}

func (a *Analytics) ranking(f filter.Filters, top bool) (models.Section[models.RankingRow], error) {
	ds, view, err := a.selection(f)
	if err != nil {
		return models.Section[models.RankingRow]{}, err
	}
	return a.rankingSection(ds, view, a.limit(f), top), nil
}

func (a *Analytics) rankingSection(ds *dataset.Dataset, view *dataset.View, n int, top bool) models.Section[models.RankingRow] {
	title := fmt.Sprintf("Bottom %d categories", n)
	if top {
		title = fmt.Sprintf("Top %d categories", n)
	}
	sec := models.Section[models.RankingRow]{Title: title, Rows: []models.RankingRow{}}
	if !available(&sec.Status, &sec.Notice, ds, models.ColCategory) {
		return sec
	}

	// Bottom ties come out in reverse category order; see aggregate.Ranking.
	res := aggregate.Rank(view, models.ColCategory,
		aggregate.Metric{Name: metricItems, Func: aggregate.Count}, n, top)
	if !res.Observed() {
		noData(&sec.Status, &sec.Notice)
		return sec
	}

	sec.Status = models.StatusOK
	labels := make([]string, 0, len(res.Rows))
	values := make([]float64, 0, len(res.Rows))
	for _, row := range res.Rows {
		sec.Rows = append(sec.Rows, models.RankingRow{Category: row.Label, Count: row.Values[0].Number})
		labels = append(labels, row.Label)
		values = append(values, row.Values[0].Number)
	}
	kind := insight.Bottom
	if top {
		kind = insight.Top
	}
	fact := insight.Extract(res, kind, 0)
	sec.Insight = &fact
	sec.ChartURL = a.chart(charts.HorizontalBar(title, labels, values))
	return sec
}

// Satisfaction is the review-score distribution with the average rating as
// its insight.
func (a *Analytics) Satisfaction(f filter.Filters) (models.Section[models.CountRow], error) {
	ds, view, err := a.selection(f)
	if err != nil {
		return models.Section[models.CountRow]{}, err
	}
	return a.satisfactionSection(ds, view), nil
}

func (a *Analytics) satisfactionSection(ds *dataset.Dataset, view *dataset.View) models.Section[models.CountRow] {
	sec := models.Section[models.CountRow]{Title: "Customer satisfaction", Rows: []models.CountRow{}}
	if !available(&sec.Status, &sec.Notice, ds, models.ColReviewScore) {
		return sec
	}

	res := aggregate.Aggregate(view, aggregate.Spec{
		GroupBy: []models.Column{models.ColReviewScore},
		Metrics: []aggregate.Metric{{Name: "reviews", Func: aggregate.Count}},
		Order:   aggregate.ByKey,
	})
	if !res.Observed() {
		noData(&sec.Status, &sec.Notice)
		return sec
	}

	sec.Status = models.StatusOK
	labels := make([]string, 0, len(res.Rows))
	values := make([]float64, 0, len(res.Rows))
	for _, row := range res.Rows {
		label := starsLabel(row.Keys[0])
		sec.Rows = append(sec.Rows, models.CountRow{Key: row.Keys[0], Label: label, Count: row.Values[0].Number})
		labels = append(labels, label)
		values = append(values, row.Values[0].Number)
	}

	avg := aggregate.Aggregate(view, aggregate.Spec{
		Metrics: []aggregate.Metric{{Name: "rating", Column: models.ColReviewScore, Func: aggregate.Mean}},
	})
	fact := insight.Extract(avg, insight.Mean, 0)
	sec.Insight = &fact
	sec.ChartURL = a.chart(charts.Bar(sec.Title, labels, values))
	return sec
}

// StateDistribution counts distinct customers per state, falling back to line
// items when customer identifiers are absent.
func (a *Analytics) StateDistribution(f filter.Filters) (models.Section[models.CountRow], error) {
	ds, view, err := a.selection(f)
	if err != nil {
		return models.Section[models.CountRow]{}, err
	}
	return a.stateSection(ds, view, a.limit(f)), nil
}

func (a *Analytics) stateSection(ds *dataset.Dataset, view *dataset.View, n int) models.Section[models.CountRow] {
	sec := models.Section[models.CountRow]{Title: "Customers by state", Rows: []models.CountRow{}}
	if !available(&sec.Status, &sec.Notice, ds, models.ColCustomerState) {
		return sec
	}

	metric := aggregate.Metric{Name: metricItems, Func: aggregate.Count}
	if ds.Capabilities().Has(models.ColCustomerUniqueID) {
		metric = aggregate.Metric{Name: "customers", Column: models.ColCustomerUniqueID, Func: aggregate.CountDistinct}
	}
	res := aggregate.Rank(view, models.ColCustomerState, metric, n, true)
	if !res.Observed() {
		noData(&sec.Status, &sec.Notice)
		return sec
	}

	sec.Status = models.StatusOK
	labels := make([]string, 0, len(res.Rows))
	values := make([]float64, 0, len(res.Rows))
	for _, row := range res.Rows {
		sec.Rows = append(sec.Rows, models.CountRow{Key: row.Keys[0], Label: row.Label, Count: row.Values[0].Number})
		labels = append(labels, row.Label)
		values = append(values, row.Values[0].Number)
	}
	fact := insight.Extract(res, insight.Top, 0)
	sec.Insight = &fact
	sec.ChartURL = a.chart(charts.Bar(sec.Title, labels, values))
	return sec
}

// MonthlyTrend reports orders, items and revenue per month in chronological
// order. Rows without a valid timestamp never contribute.
func (a *Analytics) MonthlyTrend(f filter.Filters, q TrendQuery) (models.Section[models.TrendRow], error) {
	ds, view, err := a.selection(f)
	if err != nil {
		return models.Section[models.TrendRow]{}, err
	}
	return a.monthlySection(ds, view, f, q), nil
}

func (a *Analytics) monthlySection(ds *dataset.Dataset, view *dataset.View, f filter.Filters, q TrendQuery) models.Section[models.TrendRow] {
	title := "Monthly trend"
	spec := aggregate.Spec{
		GroupBy:  []models.Column{models.ColPeriod},
		Metrics:  trendMetrics(ds),
		Order:    aggregate.ByKey,
		ZeroFill: q.ZeroFill,
	}
	if q.Year != 0 {
		title = fmt.Sprintf("Monthly trend %d", q.Year)
		spec.GroupBy = []models.Column{models.ColMonth}
		spec.Year = q.Year
	} else {
		spec.FillFrom, spec.FillTo = fillBounds(ds, f)
	}
	return a.trendSection(title, ds, view, spec)
}

// fillBounds clamps the date filter to the dataset's own time span, so empty
// periods are only added between months the dataset could have observed.
func fillBounds(ds *dataset.Dataset, f filter.Filters) (from, to time.Time) {
	first, last, ok := ds.TimeSpan()
	if !ok {
		return time.Time{}, time.Time{}
	}
	from, to = f.Start, f.End
	if !from.IsZero() && from.Before(first) {
		from = first
	}
	if !to.IsZero() && to.After(last) {
		to = last
	}
	return from, to
}

// YearlyTrend reports the same metrics per calendar year.
func (a *Analytics) YearlyTrend(f filter.Filters) (models.Section[models.TrendRow], error) {
	ds, view, err := a.selection(f)
	if err != nil {
		return models.Section[models.TrendRow]{}, err
	}
	return a.yearlySection(ds, view), nil
}

func (a *Analytics) yearlySection(ds *dataset.Dataset, view *dataset.View) models.Section[models.TrendRow] {
	return a.trendSection("Yearly trend", ds, view, aggregate.Spec{
		GroupBy: []models.Column{models.ColYear},
		Metrics: trendMetrics(ds),
		Order:   aggregate.ByKey,
	})
}

func (a *Analytics) trendSection(title string, ds *dataset.Dataset, view *dataset.View, spec aggregate.Spec) models.Section[models.TrendRow] {
	sec := models.Section[models.TrendRow]{Title: title, Rows: []models.TrendRow{}}
	if !available(&sec.Status, &sec.Notice, ds, models.ColYear) {
		return sec
	}

	res := aggregate.Aggregate(view, spec)
	if !res.Observed() {
		noData(&sec.Status, &sec.Notice)
		return sec
	}

	orders := metricIndex(res, "orders")
	items := metricIndex(res, metricItems)
	revenue := metricIndex(res, "revenue")

	sec.Status = models.StatusOK
	labels := make([]string, 0, len(res.Rows))
	orderSeries := make([]float64, 0, len(res.Rows))
	revenueSeries := make([]float64, 0, len(res.Rows))
	for _, row := range res.Rows {
		tr := models.TrendRow{
			Period:  row.Keys[0],
			Label:   row.Label,
			Orders:  metricValue(row, orders),
			Items:   metricValue(row, items),
			Revenue: metricValue(row, revenue),
		}
		sec.Rows = append(sec.Rows, tr)
		labels = append(labels, tr.Label)
		orderSeries = append(orderSeries, tr.Orders)
		revenueSeries = append(revenueSeries, tr.Revenue)
	}

	fact := insight.Extract(res, insight.Extremes, orders)
	sec.Insight = &fact
	series := []charts.Series{{Name: "orders", Values: orderSeries}}
	if revenue >= 0 {
		series = append(series, charts.Series{Name: "revenue", Values: revenueSeries})
	}
	sec.ChartURL = a.chart(charts.Line(title, labels, series...))
	return sec
}

// trendMetrics counts orders by distinct order id when ids are present, and
// drops revenue when neither price nor freight was loaded.
func trendMetrics(ds *dataset.Dataset) []aggregate.Metric {
	caps := ds.Capabilities()
	metrics := []aggregate.Metric{{Name: "orders", Func: aggregate.Count}}
	if caps.Has(models.ColOrderID) {
		metrics[0] = aggregate.Metric{Name: "orders", Column: models.ColOrderID, Func: aggregate.CountDistinct}
	}
	metrics = append(metrics, aggregate.Metric{Name: metricItems, Func: aggregate.Count})
	if caps.Has(models.ColRevenue) {
		metrics = append(metrics, aggregate.Metric{Name: "revenue", Column: models.ColRevenue, Func: aggregate.Sum})
	}
	return metrics
}

// Overview answers every question against a single filtered view.
func (a *Analytics) Overview(f filter.Filters, q TrendQuery) (models.Overview, error) {
	ds, view, err := a.selection(f)
	if err != nil {
		return models.Overview{}, err
	}
	n := a.limit(f)
	return models.Overview{
		TopCategories:     a.rankingSection(ds, view, n, true),
		BottomCategories:  a.rankingSection(ds, view, n, false),
		Satisfaction:      a.satisfactionSection(ds, view),
		StateDistribution: a.stateSection(ds, view, n),
		MonthlyTrend:      a.monthlySection(ds, view, f, q),
		YearlyTrend:       a.yearlySection(ds, view),
		MatchedRows:       view.Len(),
	}, nil
}

// Facets lists the selectable filter values of the loaded dataset.
func (a *Analytics) Facets() (models.Facets, error) {
	s, err := a.Session()
	if err != nil {
		return models.Facets{}, err
	}
	ds := s.Dataset
	states := make(map[string]struct{})
	categories := make(map[string]struct{})
	years := make(map[int]struct{})
	var facets models.Facets
	for i := 0; i < ds.Len(); i++ {
		tx := ds.Row(i)
		if tx.CustomerState != "" {
			states[tx.CustomerState] = struct{}{}
		}
		if tx.CategoryLabel != "" {
			categories[tx.CategoryLabel] = struct{}{}
		}
		if tx.OrderTime.Valid() {
			years[tx.Year] = struct{}{}
		}
	}
	facets.MinDate, facets.MaxDate, _ = ds.TimeSpan()
	facets.States = sortedKeys(states)
	facets.Categories = sortedKeys(categories)
	facets.Years = make([]int, 0, len(years))
	for y := range years {
		facets.Years = append(facets.Years, y)
	}
	slices.Sort(facets.Years)
	return facets, nil
}

func (a *Analytics) limit(f filter.Filters) int {
	if f.TopN == 0 && a.defaults.TopN != 0 {
		return a.defaults.TopN
	}
	return f.Limit()
}

func (a *Analytics) chart(url string, err error) string {
	if err != nil {
		a.logger.Debug("chart url not built", "error", err)
		return ""
	}
	return url
}

// available sets the not-available status when the dataset lacks any of cols.
func available(status *models.SectionStatus, notice *string, ds *dataset.Dataset, cols ...models.Column) bool {
	missing := ds.Capabilities().Missing(cols...)
	if len(missing) == 0 {
		return true
	}
	names := make([]string, len(missing))
	for i, c := range missing {
		names[i] = string(c)
	}
	*status = models.StatusNotAvailable
	*notice = "Not available: dataset has no " + strings.Join(names, ", ") + " values."
	return false
}

func noData(status *models.SectionStatus, notice *string) {
	*status = models.StatusNoData
	*notice = noticeNoData
}

func metricIndex(res *aggregate.Result, name string) int {
	return slices.IndexFunc(res.Metrics, func(m aggregate.Metric) bool { return m.Name == name })
}

func metricValue(row aggregate.Row, i int) float64 {
	if i < 0 || !row.Values[i].Valid {
		return 0
	}
	return row.Values[i].Number
}

func starsLabel(key string) string {
	n, err := strconv.Atoi(key)
	if err != nil {
		return key
	}
	if n == 1 {
		return "1 star"
	}
	return key + " stars"
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
