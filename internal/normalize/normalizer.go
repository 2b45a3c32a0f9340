package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

const (
	defaultBatchSize = 10000
	defaultWorkers   = 8
)

// Diagnostics summarise per-row problems absorbed during normalization.
type Diagnostics struct {
	TotalRows            int             `json:"total_rows"`
	KeptRows             int             `json:"kept_rows"`
	DroppedRows          int             `json:"dropped_rows"`
	MissingTimestamps    int             `json:"missing_timestamps"`
	InvalidTimestamps    int             `json:"invalid_timestamps"`
	PriceParseFailures   int             `json:"price_parse_failures"`
	FreightParseFailures int             `json:"freight_parse_failures"`
	InvalidReviewScores  int             `json:"invalid_review_scores"`
	TimeColumn           models.Column   `json:"time_column,omitempty"`
	MissingColumns       []models.Column `json:"missing_columns,omitempty"`
}

func (d *Diagnostics) add(o rowDiagnostics) {
	if o.missingTime {
		d.MissingTimestamps++
	}
	if o.invalidTime {
		d.InvalidTimestamps++
	}
	if o.badPrice {
		d.PriceParseFailures++
	}
	if o.badFreight {
		d.FreightParseFailures++
	}
	if o.badReview {
		d.InvalidReviewScores++
	}
}

type rowDiagnostics struct {
	missingTime bool
	invalidTime bool
	badPrice    bool
	badFreight  bool
	badReview   bool
	dropped     bool
}

type Options struct {
	// TimeColumn is the designated timestamp. Empty selects
	// order_purchase_timestamp, falling back to order_approved_at.
	TimeColumn models.Column
	// DropInvalidTimestamps removes rows whose designated timestamp is present
	// but unparseable. By default such rows are kept and only excluded from
	// time-keyed aggregations.
	DropInvalidTimestamps bool
	// CategoryTranslations maps internal category names to display names.
	CategoryTranslations map[string]string
	BatchSize            int
	Workers              int
}

type Option func(*Options)

func WithTimeColumn(col models.Column) Option {
	return func(o *Options) { o.TimeColumn = col }
}

func WithDropInvalidTimestamps(drop bool) Option {
	return func(o *Options) { o.DropInvalidTimestamps = drop }
}

func WithCategoryTranslations(m map[string]string) Option {
	return func(o *Options) { o.CategoryTranslations = m }
}

func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// Normalizer turns raw tables into canonical datasets. It holds no state
// between calls and never modifies its input.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

func New(logger *slog.Logger, opts ...Option) *Normalizer {
	o := Options{
		BatchSize: defaultBatchSize,
		Workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{opts: o, logger: logger}
}

type columnIndex map[models.Column]int

func (ci columnIndex) cell(raw *dataset.RawTable, r int, col models.Column) string {
	i, ok := ci[col]
	if !ok {
		return ""
	}
	return raw.Cell(r, i)
}

// Normalize coerces a raw table into a canonical dataset. Per-row parse
// failures are recorded in the diagnostics and never returned as errors; the
// only error is context cancellation.
func (n *Normalizer) Normalize(ctx context.Context, raw *dataset.RawTable) (*dataset.Dataset, Diagnostics, error) {
	start := time.Now()

	idx := make(columnIndex)
	var present []models.Column
	for _, col := range models.SourceColumns {
		if i := raw.Index(string(col)); i >= 0 {
			idx[col] = i
			present = append(present, col)
		}
	}

	diag := Diagnostics{TotalRows: raw.Len()}
	for _, col := range models.SourceColumns {
		if _, ok := idx[col]; !ok {
			diag.MissingColumns = append(diag.MissingColumns, col)
		}
	}

	timeCol := n.opts.TimeColumn
	if timeCol == "" {
		timeCol = models.ColPurchasedAt
		if _, ok := idx[timeCol]; !ok {
			timeCol = models.ColApprovedAt
		}
	}
	if _, ok := idx[timeCol]; ok {
		diag.TimeColumn = timeCol
	}

	rows := make([]models.Transaction, raw.Len())
	rowDiags := make([]rowDiagnostics, raw.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.opts.Workers)
	for lo := 0; lo < raw.Len(); lo += n.opts.BatchSize {
		hi := min(lo+n.opts.BatchSize, raw.Len())
		g.Go(func() error {
			for r := lo; r < hi; r++ {
				if r%1000 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				rows[r], rowDiags[r] = n.convertRow(raw, idx, r, diag.TimeColumn)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Diagnostics{}, fmt.Errorf("normalize rows: %w", err)
	}

	kept := make([]models.Transaction, 0, len(rows))
	for i := range rows {
		diag.add(rowDiags[i])
		if rowDiags[i].dropped {
			diag.DroppedRows++
			continue
		}
		kept = append(kept, rows[i])
	}
	diag.KeptRows = len(kept)

	ds := dataset.New(kept, present, diag.TimeColumn)

	n.logger.Debug("dataset normalized",
		"rows", diag.TotalRows,
		"kept", diag.KeptRows,
		"invalid_timestamps", diag.InvalidTimestamps,
		"price_parse_failures", diag.PriceParseFailures,
		"missing_columns", len(diag.MissingColumns),
		"duration", time.Since(start),
	)
	return ds, diag, nil
}

func (n *Normalizer) convertRow(raw *dataset.RawTable, idx columnIndex, r int, timeCol models.Column) (models.Transaction, rowDiagnostics) {
	cell := func(col models.Column) string {
		return strings.TrimSpace(idx.cell(raw, r, col))
	}

	var d rowDiagnostics
	tx := models.Transaction{
		OrderID:          cell(models.ColOrderID),
		OrderItemID:      cell(models.ColOrderItemID),
		ProductID:        cell(models.ColProductID),
		CustomerID:       cell(models.ColCustomerID),
		CustomerUniqueID: cell(models.ColCustomerUniqueID),
		CustomerState:    strings.ToUpper(cell(models.ColCustomerState)),
		CustomerCity:     cell(models.ColCustomerCity),
		Category:         cell(models.ColCategory),
		PurchasedAt:      ParseTimestamp(cell(models.ColPurchasedAt)),
		ApprovedAt:       ParseTimestamp(cell(models.ColApprovedAt)),
	}
	tx.CategoryLabel = n.categoryLabel(tx.Category, cell(models.ColCategoryEnglish))

	var ok bool
	tx.Price.Value, tx.Price.Present, ok = ParseAmount(cell(models.ColPrice))
	d.badPrice = !ok
	tx.Freight.Value, tx.Freight.Present, ok = ParseAmount(cell(models.ColFreight))
	d.badFreight = !ok
	tx.Payment.Value, tx.Payment.Present, _ = ParseAmount(cell(models.ColPayment))

	tx.ReviewScore, ok = ParseReviewScore(cell(models.ColReviewScore))
	d.badReview = !ok

	tx.Revenue = tx.Price.OrZero() + tx.Freight.OrZero()

	switch timeCol {
	case models.ColPurchasedAt:
		tx.OrderTime = tx.PurchasedAt
	case models.ColApprovedAt:
		tx.OrderTime = tx.ApprovedAt
	}
	if timeCol != "" {
		switch tx.OrderTime.Status {
		case models.TimeValid:
			tx.Year = tx.OrderTime.Time.Year()
			tx.Month = int(tx.OrderTime.Time.Month())
		case models.TimeInvalid:
			d.invalidTime = true
			d.dropped = n.opts.DropInvalidTimestamps
		default:
			d.missingTime = true
		}
	}
	return tx, d
}

func (n *Normalizer) categoryLabel(category, english string) string {
	if english != "" {
		return english
	}
	if label, ok := n.opts.CategoryTranslations[category]; ok {
		return label
	}
	return category
}
