package importer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrInvalidFileFormat indicates the uploaded bytes are not a readable
	// spreadsheet container. Fatal to the whole import.
	ErrInvalidFileFormat = errors.New("invalid file format")

	// ErrInvalidImportFormat indicates the workbook is readable but does not
	// match the expected sheet/column layout. Fatal to the whole import.
	ErrInvalidImportFormat = errors.New("invalid import format")
)

// Row is one spreadsheet data row exposed through typed accessors. Column
// names are lower-cased and whitespace-trimmed.
type Row struct {
	// Index is the 1-based row number within the sheet (the header is row 1)
	Index int

	cells map[string]string
}

// NewRow builds a row from normalized column/value pairs. Exposed for tests
// and callers that construct row sequences without a workbook.
func NewRow(index int, cells map[string]string) Row {
	normalized := make(map[string]string, len(cells))
	for k, v := range cells {
		normalized[normalizeColumn(k)] = strings.TrimSpace(v)
	}
	return Row{Index: index, cells: normalized}
}

// Has reports whether the column exists in the sheet header
func (r Row) Has(column string) bool {
	_, ok := r.cells[column]
	return ok
}

// Empty reports whether the column is absent or holds no value
func (r Row) Empty(column string) bool {
	return r.cells[column] == ""
}

// String returns the trimmed cell text, empty when absent
func (r Row) String(column string) string {
	return r.cells[column]
}

// dateLayouts are the cell encodings accepted for lifecycle date columns
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01-02-06",
	"1/2/06 15:04",
	"01/02/2006",
	"02.01.2006",
	time.RFC3339,
}

// Date parses the cell as a calendar date. Date-formatted spreadsheet cells
// arrive as formatted strings, unformatted ones as raw serial numbers; both
// are accepted. Any other content is an error.
func (r Row) Date(column string) (time.Time, error) {
	raw := r.cells[column]
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return truncateToDate(t), nil
		}
	}

	// excel stores dates as day serials since 1900
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return truncateToDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("not a valid date value: %q", raw)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeColumn(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// SheetOptions controls how a sheet is turned into rows
type SheetOptions struct {
	// DropEmpty lists columns whose empty value causes the row to be skipped
	// entirely (used to drop blank trailing rows on the natural-key column)
	DropEmpty []string
}

// Workbook wraps a parsed spreadsheet and tracks which sheets passed schema
// verification. Reading a sheet that was not verified is refused.
type Workbook struct {
	file     *excelize.File
	logger   *logrus.Entry
	verified map[string]bool
}

// OpenWorkbook parses the spreadsheet container from the reader
func OpenWorkbook(r io.Reader, logger *logrus.Entry) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		logger.WithError(err).Error("unable to read workbook")
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
	}

	return &Workbook{
		file:     f,
		logger:   logger,
		verified: make(map[string]bool),
	}, nil
}

// Close releases the underlying file resources
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns the workbook's sheet names in order
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Verify checks that the sheet exists and that its header contains every
// required column. On success the sheet is marked valid for import.
func (w *Workbook) Verify(sheet string, requiredColumns []string) error {
	found := false
	for _, name := range w.SheetNames() {
		if name == sheet {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: sheet %q not found", ErrInvalidImportFormat, sheet)
	}

	header, err := w.header(sheet)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	for _, col := range requiredColumns {
		if !present[normalizeColumn(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing required columns: %s",
			ErrInvalidImportFormat, strings.Join(missing, ", "))
	}

	w.verified[sheet] = true
	return nil
}

// Verified reports whether the sheet passed schema verification
func (w *Workbook) Verified(sheet string) bool {
	return w.verified[sheet]
}

// ReadSheet returns the sheet's data rows in input order. The sheet must have
// been verified first.
func (w *Workbook) ReadSheet(sheet string, opts SheetOptions) ([]Row, error) {
	if !w.verified[sheet] {
		return nil, fmt.Errorf("sheet %q has not been verified for import", sheet)
	}

	raw, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(raw) < 1 {
		return nil, nil
	}

	header := make([]string, len(raw[0]))
	for i, name := range raw[0] {
		header[i] = normalizeColumn(name)
	}

	var rows []Row
	for idx, cells := range raw[1:] {
		row := Row{Index: idx + 2, cells: make(map[string]string, len(header))}
		blank := true
		for i, name := range header {
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row.cells[name] = value
			if value != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		dropped := false
		for _, col := range opts.DropEmpty {
			if row.Empty(normalizeColumn(col)) {
				dropped = true
				break
			}
		}
		if dropped {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func (w *Workbook) header(sheet string) ([]string, error) {
	it, err := w.file.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer it.Close()

	if !it.Next() {
		return nil, nil
	}
	cells, err := it.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of sheet %q: %w", sheet, err)
	}

	header := make([]string, len(cells))
	for i, name := range cells {
		header[i] = normalizeColumn(name)
	}
	return header, nil
}
