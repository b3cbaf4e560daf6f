// Package importer reads spreadsheet uploads into header-keyed rows.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// Row is one data row keyed by canonical column name.
type Row struct {
	// Line is the 1-based data row index, excluding the header.
	Line  int
	Cells map[string]string
}

// Get returns the trimmed cell for a canonical column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Cells[column])
}

// Aliases maps folded header names to canonical column names.
type Aliases map[string]string

// FoldHeader case-folds a header and strips spaces, underscores, dashes and dots.
func FoldHeader(h string) string {
	folded := cases.Fold().String(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.', '\t':
			return -1
		}
		return r
	}, folded)
}

// Canonical resolves a raw header to its canonical column, or the folded
// header when no alias matches.
func (a Aliases) Canonical(header string) string {
	folded := FoldHeader(header)
	if name, ok := a[folded]; ok {
		return name
	}
	return folded
}

// Read dispatches on the file extension: .xlsx or .csv.
func Read(filename string, r io.Reader, aliases Aliases) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ReadXLSX(r, aliases)
	case ".csv":
		return ReadCSV(r, aliases)
	default:
		return nil, shared.NewValidationError("file", "must be an .xlsx or .csv file")
	}
}

// ReadCSV reads a CSV stream whose first record is the header.
func ReadCSV(r io.Reader, aliases Aliases) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, shared.Invalidf("csv line %d: %v", perr.Line, perr.Err)
		}
		return nil, err
	}
	return toRows(records, aliases)
}

// ReadXLSX reads the first sheet of a workbook whose first row is the header.
func ReadXLSX(r io.Reader, aliases Aliases) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, shared.Invalidf("unreadable workbook: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, shared.Invalidf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("importer: read sheet %q: %w", sheets[0], err)
	}
	return toRows(records, aliases)
}

func toRows(records [][]string, aliases Aliases) ([]Row, error) {
	if len(records) < 2 {
		return nil, shared.Invalidf("file is empty or has no data rows")
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = aliases.Canonical(h)
	}
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		cells := make(map[string]string, len(headers))
		blank := true
		for j, v := range rec {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			cells[headers[j]] = v
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Line: i + 1, Cells: cells})
	}
	if len(rows) == 0 {
		return nil, shared.Invalidf("file is empty or has no data rows")
	}
	return rows, nil
}

// ParseAmount parses a money cell, accepting an "Rs." prefix and thousands
// separators. An empty cell is zero.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rs") {
		s = strings.TrimPrefix(s[2:], ".")
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, shared.Invalidf("%q is not an amount", s)
	}
	return v, nil
}

// ParseCount parses a whole-number cell. An empty cell is zero.
func ParseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, shared.Invalidf("%q is not a whole number", s)
	}
	return int64(f), nil
}
