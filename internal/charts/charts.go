package charts

import (
	"encoding/json"
	"errors"
	"fmt"

	quickchartgo "github.com/henomis/quickchart-go"
)

var ErrEmptyChart = errors.New("chart has no data")

type Config struct {
	Type    string   `json:"type"`
	Data    Data     `json:"data"`
	Options *Options `json:"options,omitempty"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	Fill        bool      `json:"fill"`
	LineTension float32   `json:"lineTension,omitempty"`
}

type Options struct {
	Title Title `json:"title"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Series is one named line or bar set.
type Series struct {
	Name   string
	Values []float64
}

// Bar returns an image URL for a single-series bar chart.
func Bar(title string, labels []string, values []float64) (string, error) {
	return URL(newConfig("bar", title, labels, []Series{{Name: title, Values: values}}))
}

// HorizontalBar is Bar with categories on the vertical axis.
func HorizontalBar(title string, labels []string, values []float64) (string, error) {
	return URL(newConfig("horizontalBar", title, labels, []Series{{Name: title, Values: values}}))
}

// Line returns an image URL for a multi-series line chart.
func Line(title string, labels []string, series ...Series) (string, error) {
	cfg := newConfig("line", title, labels, series)
	for i := range cfg.Data.Datasets {
		cfg.Data.Datasets[i].LineTension = 0.3
	}
	return URL(cfg)
}

func newConfig(kind, title string, labels []string, series []Series) Config {
	cfg := Config{
		Type: kind,
		Data: Data{Labels: labels},
	}
	if title != "" {
		cfg.Options = &Options{Title: Title{Display: true, Text: title}}
	}
	for _, s := range series {
		cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{Label: s.Name, Data: s.Values})
	}
	return cfg
}

// URL renders a Chart.js config into a QuickChart image URL.
func URL(cfg Config) (string, error) {
	if len(cfg.Data.Labels) == 0 || len(cfg.Data.Datasets) == 0 {
		return "", ErrEmptyChart
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal chart config: %w", err)
	}
	qc := quickchartgo.New()
	qc.Config = string(b)
	u, err := qc.GetUrl()
	if err != nil {
		return "", fmt.Errorf("build chart url: %w", err)
	}
	return u, nil
}
