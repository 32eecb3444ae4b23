package catalog

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source column names.
const (
	ColName    = "name"
	ColCode    = "code"
	ColLevel   = "level"
	ColPurpose = "sku_ex"
	ColUsage   = "use_to"
)

// ReadSource parses a catalog source file. Files ending in .xlsx are read from
// their first sheet; anything else is treated as CSV. The first row must be a
// header naming at least the name, code and level columns.
func ReadSource(path string) ([]Record, error) {
	if path == "" {
		return nil, ErrNoSource
	}
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet of %s: %w", path, err)
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, ErrMissingHeader
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{ColName, ColCode, ColLevel} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog header is missing column %q", required)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		level, err := parseLevel(cell(row, ColLevel))
		if err != nil {
			// n+2: 1-based, after the header.
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		out = append(out, Record{
			Name:    strings.TrimSpace(cell(row, ColName)),
			Code:    strings.TrimSpace(cell(row, ColCode)),
			Level:   level,
			Purpose: cell(row, ColPurpose),
			Usage:   cell(row, ColUsage),
		})
	}
	return out, nil
}

// parseLevel accepts integers and integral floats ("3", "3.0"); blank is 0.
func parseLevel(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	return int(f), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
