package models

import "time"

type SectionStatus string

const (
	StatusOK           SectionStatus = "ok"
	StatusNoData       SectionStatus = "no_data_for_selection"
	StatusNotAvailable SectionStatus = "not_available"
)

// Section is one answered dashboard question. Rows is empty unless Status is
// StatusOK.
type Section[T any] struct {
	Title    string        `json:"title"`
	Status   SectionStatus `json:"status"`
	Notice   string        `json:"notice,omitempty"`
	Rows     []T           `json:"rows"`
	Insight  *Insight      `json:"insight,omitempty"`
	ChartURL string        `json:"chart_url,omitempty"`
}

func (s Section[T]) OK() bool { return s.Status == StatusOK }

type RankingRow struct {
	Category string  `json:"category"`
	Count    float64 `json:"count"`
}

type CountRow struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

type TrendRow struct {
	Period  string  `json:"period"`
	Label   string  `json:"label"`
	Orders  float64 `json:"orders"`
	Items   float64 `json:"items"`
	Revenue float64 `json:"revenue"`
}

// Insight is a caption-ready summary of a section.
type Insight struct {
	Available bool    `json:"available"`
	Caption   string  `json:"caption"`
	Label     string  `json:"label,omitempty"`
	Value     float64 `json:"value,omitempty"`
	MinLabel  string  `json:"min_label,omitempty"`
	MinValue  float64 `json:"min_value,omitempty"`
}

type Overview struct {
	TopCategories     Section[RankingRow] `json:"top_categories"`
	BottomCategories  Section[RankingRow] `json:"bottom_categories"`
	Satisfaction      Section[CountRow]   `json:"satisfaction"`
	StateDistribution Section[CountRow]   `json:"state_distribution"`
	MonthlyTrend      Section[TrendRow]   `json:"monthly_trend"`
	YearlyTrend       Section[TrendRow]   `json:"yearly_trend"`
	MatchedRows       int                 `json:"matched_rows"`
}

// Facets describe the selectable filter values of the loaded dataset.
type Facets struct {
	States     []string  `json:"states"`
	Categories []string  `json:"categories"`
	Years      []int     `json:"years"`
	MinDate    time.Time `json:"min_date,omitzero"`
	MaxDate    time.Time `json:"max_date,omitzero"`
}
