package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// FailureMessage is the user-facing text for any ingestion failure
const FailureMessage = "Failed to process spreadsheet file. Please check the format."

// Common errors
var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptyFile         = errors.New("spreadsheet file is empty")
	ErrNoSheet           = errors.New("workbook has no worksheets")
)

// ParseError reports that a file could not be decoded as tabular data.
// The catalog is never modified when it is returned.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Row is one spreadsheet row keyed by header. Blank cells are absent.
// Values are bool, float64 or string.
type Row map[string]any

// Supported file extensions
var workbookExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

const legacyWorkbookExt = ".xls"

// Supported reports whether the file name has an accepted extension
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return workbookExts[ext] || ext == legacyWorkbookExt || ext == ".csv"
}

// ReadRows decodes the first worksheet (or the CSV body) into rows.
// Fully blank rows are skipped.
func ReadRows(data []byte, name string) ([]Row, error) {
	if len(data) == 0 {
		return nil, &ParseError{FileName: name, Err: ErrEmptyFile}
	}

	ext := strings.ToLower(filepath.Ext(name))
	var (
		rows []Row
		err  error
	)
	switch {
	case workbookExts[ext]:
		rows, err = readWorkbook(data)
	case ext == legacyWorkbookExt:
		rows, err = readLegacyWorkbook(data)
	case ext == ".csv":
		rows, err = readCSV(data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &ParseError{FileName: name, Err: err}
	}
	return rows, nil
}

func readWorkbook(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	sheet := sheets[0]

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(grid) == 0 {
		return []Row{}, nil
	}

	header := headerKeys(grid[0])
	rows := make([]Row, 0, len(grid)-1)

	for r := 1; r < len(grid); r++ {
		row := make(Row)
		for c, raw := range grid[r] {
			if c >= len(header) || header[c] == "" || strings.TrimSpace(raw) == "" {
				continue
			}
			if _, exists := row[header[c]]; exists {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
			}
			row[header[c]] = typedValue(cellType, raw)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// readLegacyWorkbook decodes the first sheet of a BIFF (.xls) workbook.
// Cells come back as text; the normalizer coerces numbers and dates.
func readLegacyWorkbook(data []byte) (rows []Row, err error) {
	// the BIFF decoder panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("failed to decode xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrNoSheet
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoSheet
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		grid = append(grid, cells)
	}

	return gridRows(grid), nil
}

// gridRows keys every row after the first by the header row
func gridRows(grid [][]string) []Row {
	rows := make([]Row, 0, len(grid))
	if len(grid) == 0 {
		return rows
	}

	header := headerKeys(grid[0])
	for _, cells := range grid[1:] {
		row := make(Row)
		for c, value := range cells {
			if c >= len(header) || header[c] == "" || strings.TrimSpace(value) == "" {
				continue
			}
			if _, exists := row[header[c]]; !exists {
				row[header[c]] = value
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// typedValue converts a raw cell value according to its stored type.
// Cells without an explicit type attribute hold numbers.
func typedValue(cellType excelize.CellType, raw string) any {
	switch cellType {
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

func readCSV(data []byte) ([]Row, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return gridRows(records), nil
}

func headerKeys(cells []string) []string {
	keys := make([]string, len(cells))
	for i, c := range cells {
		keys[i] = strings.TrimSpace(c)
	}
	return keys
}
