// Package loader reads heterogeneous tabular report exports (XLSX or CSV)
// into raw in-memory tables. Cell typing happens once here; downstream
// stages only ever see tagged cells, never raw strings.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrSourceNotFound   = errors.New("source file not found")
	ErrUnreadableFormat = errors.New("unreadable tabular format")
	ErrEmptySource      = errors.New("source has no data rows")
)

// CellKind tags the value variant carried by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is the tagged value union produced at load time.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

// String returns the raw text form regardless of kind, for logging.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.Format("2006-01-02 15:04:05")
	default:
		return c.Text
	}
}

// RawRow is one data row keyed by the trimmed header text. Index is the
// 1-based row number in the source file, kept for issue reporting.
type RawRow struct {
	Index int
	Cells map[string]Cell
}

// RawTable is the ordered result of loading one source.
type RawTable struct {
	Source  string
	Headers []string
	Rows    []RawRow
}

// DefaultDateFormats are the layouts tried, in order, when typing cells.
// Configurable per run through Options.
var DefaultDateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"Jan 2, 2006",
	"15:04",
}

// Options controls cell typing and header detection.
type Options struct {
	DateFormats []string
	// MaxHeaderScan is how many leading rows are scanned for the header
	// when it is not on line 1. Defaults to 10.
	MaxHeaderScan int
}

func (o Options) withDefaults() Options {
	if len(o.DateFormats) == 0 {
		o.DateFormats = DefaultDateFormats
	}
	if o.MaxHeaderScan == 0 {
		o.MaxHeaderScan = 10
	}
	return o
}

// headerHints are normalized header fragments that identify the real header
// row inside exports that carry preamble lines above it.
var headerHints = map[string]struct{}{
	"campaignname":       {},
	"campaigns":          {},
	"customersearchterm": {},
	"searchterm":         {},
	"advertisedasin":     {},
	"advertisedsku":      {},
	"impressions":        {},
	"clicks":             {},
	"spend":              {},
	"msku":               {},
	"sku":                {},
	"date":               {},
	"startdate":          {},
	"starttime":          {},
}

// Load reads the source at the given locator, dispatching on its extension.
// Remote http(s) locators are fetched to a temp file first.
func Load(locator string, opts Options) (*RawTable, error) {
	path := locator
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		tmp, err := fetchRemote(locator)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		path = tmp
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return loadXLSX(locator, path, opts.withDefaults())
	case ".csv", ".tsv":
		return loadCSV(locator, path, opts.withDefaults())
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q for %s", ErrUnreadableFormat, filepath.Ext(path), locator)
	}
}

func loadCSV(source, path string, opts Options) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		return nil, fmt.Errorf("opening %s: %w", source, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		r.Comma = '\t'
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFormat, source, err)
		}
		rows = append(rows, rec)
	}
	return buildTable(source, rows, opts)
}

func loadXLSX(source, path string, opts Options) (*RawTable, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFormat, source, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, source)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFormat, source, err)
	}
	return buildTable(source, rows, opts)
}

// buildTable locates the header row, then types every data cell.
func buildTable(source string, rows [][]string, opts Options) (*RawTable, error) {
	headerIdx := findHeader(rows, opts.MaxHeaderScan)
	if headerIdx < 0 {
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptySource, source)
		}
		return nil, fmt.Errorf("%w: %s: no header row found", ErrUnreadableFormat, source)
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(stripBOM(h))
	}

	table := &RawTable{Source: source, Headers: headers}
	for i := headerIdx + 1; i < len(rows); i++ {
		rec := rows[i]
		if isBlank(rec) {
			continue
		}
		cells := make(map[string]Cell, len(headers))
		for col, h := range headers {
			if h == "" {
				continue
			}
			raw := ""
			if col < len(rec) {
				raw = rec[col]
			}
			cells[h] = typeCell(raw, opts.DateFormats)
		}
		table.Rows = append(table.Rows, RawRow{Index: i + 1, Cells: cells})
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, source)
	}
	return table, nil
}

// findHeader returns the index of the first row that looks like a header:
// at least two non-empty cells, one of which matches a known header hint.
func findHeader(rows [][]string, maxScan int) int {
	limit := len(rows)
	if limit > maxScan {
		limit = maxScan
	}
	for i := 0; i < limit; i++ {
		nonEmpty := 0
		hinted := false
		for _, c := range rows[i] {
			c = strings.TrimSpace(stripBOM(c))
			if c == "" {
				continue
			}
			nonEmpty++
			if _, ok := headerHints[normHeader(c)]; ok {
				hinted = true
			}
		}
		if nonEmpty >= 2 && hinted {
			return i
		}
	}
	return -1
}

// typeCell decides the tagged variant for a raw cell exactly once.
// Currency-formatted strings stay text; coercion is the normalizer's job.
func typeCell(raw string, dateFormats []string) Cell {
	s := strings.TrimSpace(stripBOM(raw))
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Cell{Kind: CellNumber, Number: n, Text: s}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return Cell{Kind: CellDate, Date: t, Text: s}
		}
	}
	return Cell{Kind: CellText, Text: s}
}

func normHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(stripBOM(c)) != "" {
			return false
		}
	}
	return true
}
