package dataset

import (
	"slices"
	"strconv"
	"time"

	"ecommerce-dashboard/internal/models"
)

const rawTimeLayout = time.RFC3339Nano

// Capabilities is the set of semantic columns that carry at least one
// non-missing value. Questions consult it instead of probing columns.
type Capabilities map[models.Column]bool

func (c Capabilities) Has(cols ...models.Column) bool {
	for _, col := range cols {
		if !c[col] {
			return false
		}
	}
	return true
}

// Missing returns the subset of cols that are not available, in input order.
func (c Capabilities) Missing(cols ...models.Column) []models.Column {
	var out []models.Column
	for _, col := range cols {
		if !c[col] {
			out = append(out, col)
		}
	}
	return out
}

// Dataset is the canonical, immutable result of normalization. Rows returned
// by views point into the dataset and must be treated as read-only.
type Dataset struct {
	rows       []models.Transaction
	columns    []models.Column
	timeColumn models.Column
	caps       Capabilities
	first      time.Time
	last       time.Time
}

// New assembles a dataset from canonical rows. columns lists the source
// columns that were present in the raw header.
func New(rows []models.Transaction, columns []models.Column, timeColumn models.Column) *Dataset {
	d := &Dataset{
		rows:       rows,
		columns:    columns,
		timeColumn: timeColumn,
	}
	d.caps = computeCapabilities(rows)
	for i := range rows {
		ts := rows[i].OrderTime
		if !ts.Valid() {
			continue
		}
		if d.first.IsZero() || ts.Time.Before(d.first) {
			d.first = ts.Time
		}
		if ts.Time.After(d.last) {
			d.last = ts.Time
		}
	}
	return d
}

func computeCapabilities(rows []models.Transaction) Capabilities {
	caps := make(Capabilities)
	all := append(slices.Clone(models.SourceColumns), models.DerivedColumns...)
	for _, col := range all {
		for i := range rows {
			if rows[i].Has(col) {
				caps[col] = true
				break
			}
		}
	}
	return caps
}

func (d *Dataset) Len() int                      { return len(d.rows) }
func (d *Dataset) Capabilities() Capabilities    { return d.caps }
func (d *Dataset) TimeColumn() models.Column     { return d.timeColumn }
func (d *Dataset) Columns() []models.Column      { return slices.Clone(d.columns) }
func (d *Dataset) Row(i int) *models.Transaction { return &d.rows[i] }

// TimeSpan returns the earliest and latest valid order time. ok is false when
// no row has one.
func (d *Dataset) TimeSpan() (first, last time.Time, ok bool) {
	return d.first, d.last, !d.first.IsZero()
}

// All returns a view over every row.
func (d *Dataset) All() *View {
	idx := make([]int, len(d.rows))
	for i := range idx {
		idx[i] = i
	}
	return &View{ds: d, idx: idx}
}

// Raw renders the canonical dataset back into a raw table with the source
// columns it was built from. Normalizing the result yields an equal dataset.
func (d *Dataset) Raw() *RawTable {
	header := make([]string, len(d.columns))
	for i, c := range d.columns {
		header[i] = string(c)
	}
	rows := make([][]string, len(d.rows))
	for i := range d.rows {
		tx := &d.rows[i]
		row := make([]string, len(d.columns))
		for j, c := range d.columns {
			row[j] = rawCell(tx, c)
		}
		rows[i] = row
	}
	return &RawTable{Header: header, Rows: rows}
}

func rawCell(tx *models.Transaction, col models.Column) string {
	switch col {
	case models.ColCategory:
		return tx.Category
	case models.ColCategoryEnglish:
		return tx.CategoryLabel
	case models.ColPurchasedAt:
		return rawTimestamp(tx.PurchasedAt)
	case models.ColApprovedAt:
		return rawTimestamp(tx.ApprovedAt)
	case models.ColPrice:
		return rawAmount(tx.Price)
	case models.ColFreight:
		return rawAmount(tx.Freight)
	case models.ColPayment:
		return rawAmount(tx.Payment)
	case models.ColReviewScore:
		if tx.ReviewScore == 0 {
			return ""
		}
		return strconv.Itoa(tx.ReviewScore)
	}
	v, _ := tx.Value(col)
	return v
}

func rawTimestamp(ts models.Timestamp) string {
	switch ts.Status {
	case models.TimeValid:
		return ts.Time.Format(rawTimeLayout)
	case models.TimeInvalid:
		return ts.Raw
	}
	return ""
}

func rawAmount(a models.Amount) string {
	if !a.Present {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// View is an ordered subset of a dataset's rows. Views are never modified in
// place; every selection produces a new view.
type View struct {
	ds  *Dataset
	idx []int
}

func (v *View) Len() int                      { return len(v.idx) }
func (v *View) Row(i int) *models.Transaction { return &v.ds.rows[v.idx[i]] }
func (v *View) Dataset() *Dataset             { return v.ds }

// Select returns a new view of the rows for which keep returns true.
func (v *View) Select(keep func(*models.Transaction) bool) *View {
	idx := make([]int, 0, len(v.idx))
	for _, i := range v.idx {
		if keep(&v.ds.rows[i]) {
			idx = append(idx, i)
		}
	}
	return &View{ds: v.ds, idx: idx}
}

// Indices returns a copy of the dataset row positions in this view.
func (v *View) Indices() []int { return slices.Clone(v.idx) }

// Has reports whether any row in the view carries a value for col.
func (v *View) Has(col models.Column) bool {
	for _, i := range v.idx {
		if v.ds.rows[i].Has(col) {
			return true
		}
	}
	return false
}
