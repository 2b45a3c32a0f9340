package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RawTable is a complete tabular dataset as read from its source: a header and
// string cells. Rows shorter than the header read as empty cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// NewRawTable builds a table with normalized header names.
func NewRawTable(header []string, rows [][]string) *RawTable {
	h := make([]string, len(header))
	for i, name := range header {
		h[i] = normalizeHeader(name)
	}
	return &RawTable{Header: h, Rows: rows}
}

// Index returns the position of a column in the header, or -1.
func (t *RawTable) Index(name string) int {
	name = normalizeHeader(name)
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row r, column index col, or "" when absent.
func (t *RawTable) Cell(r, col int) string {
	if col < 0 || r < 0 || r >= len(t.Rows) {
		return ""
	}
	row := t.Rows[r]
	if col >= len(row) {
		return ""
	}
	return row[col]
}

func (t *RawTable) Len() int { return len(t.Rows) }

// Fingerprint is a content hash of the table, used to memoize normalization.
func (t *RawTable) Fingerprint() string {
	h := sha256.New()
	for _, name := range t.Header {
		h.Write([]byte(name))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x1e})
	for _, row := range t.Rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}
