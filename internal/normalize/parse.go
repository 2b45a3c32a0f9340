package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"ecommerce-dashboard/internal/models"
)

// currencyPrefixes are stripped from price-like cells before parsing. Longer
// prefixes come first so "R$" wins over "$".
var currencyPrefixes = []string{"BRL", "USD", "EUR", "R$", "US$", "$", "€", "£"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseAmount converts a locale-formatted monetary string to a number.
// "R$ 1.234,56" and "1,234.56" both yield 1234.56. present is false for an
// empty cell; ok is false when a non-empty cell could not be parsed.
func ParseAmount(s string) (value float64, present, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, true
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	upper := strings.ToUpper(s)
	for _, prefix := range currencyPrefixes {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && comma > dot:
		// comma decimal separator, dots group thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true, false
	}
	if negative {
		v = -v
	}
	return v, true, true
}

// ParseTimestamp parses a timestamp cell with a tolerant set of layouts.
// Valid times are stored in UTC.
func ParseTimestamp(s string) models.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Timestamp{Status: models.TimeMissing}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Timestamp{Time: t.UTC(), Status: models.TimeValid}
		}
	}
	return models.Timestamp{Status: models.TimeInvalid, Raw: s}
}

// ParseReviewScore returns a 1-5 rating, or 0 with ok=false for anything else.
// Spreadsheet exports often carry "4.0"; integral floats are accepted.
func ParseReviewScore(s string) (score int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > 5 {
		return 0, false
	}
	return int(f), true
}
