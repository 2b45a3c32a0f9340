package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrNoHeader          = errors.New("dataset has no header row")
)

// LoadOptions tune how a dataset file is read.
type LoadOptions struct {
	// Table selects the SQLite table; empty means the first user table.
	Table string
	// Sheet selects the XLSX sheet; empty means the first sheet.
	Sheet string
}

// LoadFile reads a complete dataset from path. The format is chosen from the
// file extension.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSVFile(ctx, path)
	case ".xlsx":
		return loadXLSXFile(path, opts.Sheet)
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(ctx, path, opts.Table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func loadCSVFile(ctx context.Context, path string) (*RawTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ReadCSV(ctx, bytes.NewReader(b))
}

// ReadCSV parses a CSV stream with a header row. A UTF-8 BOM is ignored and
// ragged rows are accepted.
func ReadCSV(ctx context.Context, r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		if len(rows)%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return NewRawTable(header, rows), nil
}

func loadXLSXFile(path, sheet string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return ReadXLSX(f, sheet)
}

// ReadXLSX reads one worksheet of a workbook. The first row is the header.
func ReadXLSX(r io.Reader, sheet string) (*RawTable, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	return NewRawTable(rows[0], rows[1:]), nil
}

func loadSQLite(ctx context.Context, path, table string) (*RawTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite path: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	return ReadSQLite(ctx, db, table)
}

// ReadSQLite reads every row of table. With an empty table name the first
// user table is used.
func ReadSQLite(ctx context.Context, db *sql.DB, table string) (*RawTable, error) {
	if table == "" {
		const q = `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`
		if err := db.QueryRowContext(ctx, q).Scan(&table); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("sqlite database has no tables")
			}
			return nil, fmt.Errorf("find table: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out [][]string
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return NewRawTable(header, out), nil
}

// LoadCategoryTranslations reads a two-column CSV mapping internal category
// names to display names.
func LoadCategoryTranslations(ctx context.Context, path string) (map[string]string, error) {
	t, err := loadCSVFile(ctx, path)
	if err != nil {
		return nil, err
	}
	src := t.Index("product_category_name")
	dst := t.Index("product_category_name_english")
	if src < 0 || dst < 0 {
		if len(t.Header) < 2 {
			return nil, fmt.Errorf("translation table needs two columns, got %d", len(t.Header))
		}
		src, dst = 0, 1
	}

	out := make(map[string]string, t.Len())
	for r := 0; r < t.Len(); r++ {
		from := strings.TrimSpace(t.Cell(r, src))
		to := strings.TrimSpace(t.Cell(r, dst))
		if from != "" && to != "" {
			out[from] = to
		}
	}
	return out, nil
}
