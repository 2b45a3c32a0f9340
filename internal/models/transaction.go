package models

import (
	"fmt"
	"strconv"
	"time"
)

// Column names a semantic field of the transaction dataset. Source columns use
// the header names of the raw table; derived columns are computed during
// normalization.
type Column string

const (
	ColOrderID          Column = "order_id"
	ColOrderItemID      Column = "order_item_id"
	ColProductID        Column = "product_id"
	ColCustomerID       Column = "customer_id"
	ColCustomerUniqueID Column = "customer_unique_id"
	ColCustomerState    Column = "customer_state"
	ColCustomerCity     Column = "customer_city"
	ColCategory         Column = "product_category_name"
	ColCategoryEnglish  Column = "product_category_name_english"
	ColPurchasedAt      Column = "order_purchase_timestamp"
	ColApprovedAt       Column = "order_approved_at"
	ColPrice            Column = "price"
	ColFreight          Column = "freight_value"
	ColPayment          Column = "payment_value"
	ColReviewScore      Column = "review_score"

	ColRevenue Column = "revenue"
	ColYear    Column = "year"
	ColMonth   Column = "month"
	ColPeriod  Column = "period"
)

// SourceColumns lists the raw columns the normalizer understands, in the order
// they are rendered back by Dataset.Raw.
var SourceColumns = []Column{
	ColOrderID, ColOrderItemID, ColProductID, ColCustomerID, ColCustomerUniqueID,
	ColCustomerState, ColCustomerCity, ColCategory, ColCategoryEnglish,
	ColPurchasedAt, ColApprovedAt, ColPrice, ColFreight, ColPayment, ColReviewScore,
}

// DerivedColumns are computed from source columns and never read from input.
var DerivedColumns = []Column{ColRevenue, ColYear, ColMonth, ColPeriod}

// IsTime reports whether grouping on c depends on a valid timestamp.
func (c Column) IsTime() bool {
	return c == ColYear || c == ColMonth || c == ColPeriod
}

type TimeStatus uint8

const (
	TimeMissing TimeStatus = iota
	TimeValid
	TimeInvalid
)

func (s TimeStatus) String() string {
	switch s {
	case TimeValid:
		return "valid"
	case TimeInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// Timestamp is a parsed point in time. Unparseable input is kept verbatim in
// Raw with status TimeInvalid; it is never replaced by a default date.
type Timestamp struct {
	Time   time.Time
	Status TimeStatus
	Raw    string
}

func (t Timestamp) Valid() bool { return t.Status == TimeValid }

// Amount is a monetary value. Present is false when the source cell was empty.
type Amount struct {
	Value   float64
	Present bool
}

// OrZero returns the value, or zero when the amount was not observed.
func (a Amount) OrZero() float64 {
	if !a.Present {
		return 0
	}
	return a.Value
}

// Transaction is one canonical order line item.
type Transaction struct {
	OrderID          string
	OrderItemID      string
	ProductID        string
	CustomerID       string
	CustomerUniqueID string
	CustomerState    string
	CustomerCity     string
	Category         string
	CategoryLabel    string

	PurchasedAt Timestamp
	ApprovedAt  Timestamp
	// OrderTime is a copy of the designated timestamp column. Year, Month and
	// the period key are derived from it and are zero when it is not valid.
	OrderTime Timestamp

	Price       Amount
	Freight     Amount
	Payment     Amount
	ReviewScore int // 0 when missing

	Revenue float64
	Year    int
	Month   int
}

// Value returns the string form of a column used for grouping, distinct counts
// and set filters. ok is false when the value is missing.
func (t *Transaction) Value(col Column) (string, bool) {
	switch col {
	case ColOrderID:
		return t.OrderID, t.OrderID != ""
	case ColOrderItemID:
		return t.OrderItemID, t.OrderItemID != ""
	case ColProductID:
		return t.ProductID, t.ProductID != ""
	case ColCustomerID:
		return t.CustomerID, t.CustomerID != ""
	case ColCustomerUniqueID:
		return t.CustomerUniqueID, t.CustomerUniqueID != ""
	case ColCustomerState:
		return t.CustomerState, t.CustomerState != ""
	case ColCustomerCity:
		return t.CustomerCity, t.CustomerCity != ""
	case ColCategory, ColCategoryEnglish:
		return t.CategoryLabel, t.CategoryLabel != ""
	case ColPurchasedAt:
		return formatTimestamp(t.PurchasedAt)
	case ColApprovedAt:
		return formatTimestamp(t.ApprovedAt)
	case ColPrice, ColFreight, ColPayment, ColRevenue, ColReviewScore:
		v, ok := t.Number(col)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case ColYear:
		if t.Year == 0 {
			return "", false
		}
		return strconv.Itoa(t.Year), true
	case ColMonth:
		if t.Month == 0 {
			return "", false
		}
		return strconv.Itoa(t.Month), true
	case ColPeriod:
		if t.Year == 0 {
			return "", false
		}
		return fmt.Sprintf("%04d-%02d", t.Year, t.Month), true
	}
	return "", false
}

// Number returns the numeric form of a column for sum and mean aggregation.
func (t *Transaction) Number(col Column) (float64, bool) {
	switch col {
	case ColPrice:
		return t.Price.Value, t.Price.Present
	case ColFreight:
		return t.Freight.Value, t.Freight.Present
	case ColPayment:
		return t.Payment.Value, t.Payment.Present
	case ColRevenue:
		return t.Revenue, t.Price.Present || t.Freight.Present
	case ColReviewScore:
		return float64(t.ReviewScore), t.ReviewScore != 0
	case ColYear:
		return float64(t.Year), t.Year != 0
	case ColMonth:
		return float64(t.Month), t.Month != 0
	}
	return 0, false
}

// Has reports whether the column carries a non-missing value.
func (t *Transaction) Has(col Column) bool {
	_, ok := t.Value(col)
	return ok
}

func formatTimestamp(ts Timestamp) (string, bool) {
	if !ts.Valid() {
		return "", false
	}
	return ts.Time.Format(time.RFC3339), true
}
