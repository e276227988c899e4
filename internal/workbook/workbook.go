// Package workbook reads and writes the spreadsheet side of a mapping run.
package workbook

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlsplice/pkg/join"
	"github.com/xuri/excelize/v2"
)

// MaxCellChars is the largest number of characters Excel stores in a cell.
const MaxCellChars = 32767

// Default sheet names.
const (
	DefaultSheet      = "Mapped_Queries"
	DefaultDebugSheet = "DEBUG_RAW_QUERIES"
	RawColumn         = "Raw_Script"
)

// ErrWrite wraps every failure to produce the output workbook.
var ErrWrite = errors.New("failed to write workbook")

// Sheet is a table read from a workbook. It remembers the numeric and
// boolean cells of the source so that Write can store unchanged cells
// with their original type and number format.
type Sheet struct {
	*join.Table
	typed map[cellRef]typedCell
}

type cellRef struct{ row, col int }

type typedCell struct {
	text  string
	value any
	style *excelize.Style
}

// NewSheet wraps a table that has no source workbook.
func NewSheet(t *join.Table) *Sheet {
	return &Sheet{Table: t}
}

// Read loads a sheet. The first row is the header.
// An empty sheet name selects the first sheet.
func Read(path, sheet string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q of %s is empty", sheet, path)
	}

	s := &Sheet{Table: join.NewTable(rows[0], rows[1:]), typed: make(map[cellRef]typedCell)}
	for i, row := range s.Rows {
		for j, text := range row {
			if text == "" {
				continue
			}
			tc, ok, err := readTyped(f, sheet, j+1, i+2, text)
			if err != nil {
				return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
			}
			if ok {
				s.typed[cellRef{i, j}] = tc
			}
		}
	}
	return s, nil
}

// readTyped reports the typed value of a numeric or boolean cell.
// Text, formula and error cells are left as strings.
func readTyped(f *excelize.File, sheet string, col, row int, text string) (typedCell, bool, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return typedCell{}, false, err
	}
	kind, err := f.GetCellType(sheet, axis)
	if err != nil {
		return typedCell{}, false, err
	}
	if kind != excelize.CellTypeUnset && kind != excelize.CellTypeNumber && kind != excelize.CellTypeBool {
		return typedCell{}, false, nil
	}
	if formula, err := f.GetCellFormula(sheet, axis); err != nil || formula != "" {
		return typedCell{}, false, err
	}
	raw, err := f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return typedCell{}, false, err
	}

	tc := typedCell{text: text}
	if kind == excelize.CellTypeBool {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return typedCell{}, false, nil
		}
		tc.value = b
		return tc, true, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return typedCell{}, false, nil
	}
	tc.value = n

	idx, err := f.GetCellStyle(sheet, axis)
	if err != nil {
		return typedCell{}, false, err
	}
	if idx != 0 {
		if tc.style, err = f.GetStyle(idx); err != nil {
			return typedCell{}, false, err
		}
	}
	return tc, true, nil
}

// RawEntry is one uncleaned section for the debug sheet.
type RawEntry struct {
	ID   string
	Body string
}

// WriteOptions configures Write.
type WriteOptions struct {
	// Sheet names the result sheet. Defaults to DefaultSheet.
	Sheet string

	// Debug adds a sheet of raw sections next to the result.
	Debug      bool
	DebugSheet string
	KeyLabel   string
	Raw        []RawEntry

	Logger *slog.Logger
}

// Write stores s as a new workbook at path. Cells whose text is unchanged
// since Read keep their numeric or boolean type. The file is written to a
// temporary name in the destination directory and renamed into place,
// so a failed write never leaves a partial workbook behind.
func Write(path string, s *Sheet, opts WriteOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := writeRows(f, sheet, s.Header, s.Rows, s.typed); err != nil {
		return fmt.Errorf("%w: sheet %q: %w", ErrWrite, sheet, err)
	}

	if opts.Debug {
		debugSheet := opts.DebugSheet
		if debugSheet == "" {
			debugSheet = DefaultDebugSheet
		}
		if _, err := f.NewSheet(debugSheet); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		rows := make([][]string, len(opts.Raw))
		for i, e := range opts.Raw {
			rows[i] = []string{e.ID, e.Body}
		}
		if err := writeRows(f, debugSheet, []string{opts.KeyLabel, RawColumn}, rows, nil); err != nil {
			return fmt.Errorf("%w: sheet %q: %w", ErrWrite, debugSheet, err)
		}
		logger.Debug("debug sheet added", slog.String("sheet", debugSheet), slog.Int("sections", len(rows)))
	}
	f.SetActiveSheet(0)

	if err := saveAtomic(f, path); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	logger.Info("workbook written", slog.String("path", path), slog.Int("rows", len(s.Rows)))
	return nil
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]string, typed map[cellRef]typedCell) error {
	if err := setRow(f, sheet, 1, header, nil); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		for j, cell := range row {
			if n := utf8.RuneCountInString(cell); n > MaxCellChars {
				return fmt.Errorf("row %d (%s) column %q holds %d characters, Excel allows %d",
					i+2, row[0], columnLabel(header, j), n, MaxCellChars)
			}
		}
		if err := setRow(f, sheet, i+2, row, rowTypes(typed, i, row)); err != nil {
			return err
		}
	}
	return nil
}

// rowTypes picks the typed cells of row i whose text is unchanged.
func rowTypes(typed map[cellRef]typedCell, i int, row []string) map[int]typedCell {
	var out map[int]typedCell
	for j, cell := range row {
		tc, ok := typed[cellRef{i, j}]
		if !ok || tc.text != cell {
			continue
		}
		if out == nil {
			out = make(map[int]typedCell)
		}
		out[j] = tc
	}
	return out
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []string, typed map[int]typedCell) error {
	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
		if tc, ok := typed[i]; ok {
			values[i] = tc.value
		}
	}
	if err := f.SetSheetRow(sheet, axis, &values); err != nil {
		return err
	}

	for col, tc := range typed {
		if tc.style == nil {
			continue
		}
		style, err := f.NewStyle(tc.style)
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func columnLabel(header []string, idx int) string {
	if idx < len(header) {
		return header[idx]
	}
	return fmt.Sprintf("#%d", idx+1)
}

func saveAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sqlsplice-tmp-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	writeErr := f.Write(tmp)
	closeErr := tmp.Close()
	if writeErr != nil {
		return fmt.Errorf("write: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	success = true
	return nil
}

// DerivedName returns the default output file name for a run started at now.
func DerivedName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("2006-01-02_150405"))
}

// OutputPath picks the destination: the explicit path when given,
// otherwise a derived name inside dir.
func OutputPath(explicit, dir, prefix string, now time.Time) string {
	if explicit != "" {
		return explicit
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, DerivedName(prefix, now))
}
