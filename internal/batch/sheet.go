package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is a grid of cells addressed by 0-based row and column.
type Sheet interface {
	Rows() ([][]string, error)
	Set(row, col int, value string) error
	Save() error
	Close() error
}

func openSheet(path string) (Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openXLSX(path)
	case ".csv":
		return openCSV(path)
	default:
		return nil, fmt.Errorf("unsupported spreadsheet type: %s", path)
	}
}

// xlsxSheet edits the first worksheet of a workbook.
type xlsxSheet struct {
	f     *excelize.File
	sheet string
}

func openXLSX(path string) (*xlsxSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return &xlsxSheet{f: f, sheet: f.GetSheetName(0)}, nil
}

func (x *xlsxSheet) Rows() ([][]string, error) {
	rows, err := x.f.GetRows(x.sheet)
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %s: %w", x.sheet, err)
	}
	return rows, nil
}

func (x *xlsxSheet) Set(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	return x.f.SetCellValue(x.sheet, cell, value)
}

func (x *xlsxSheet) Save() error  { return x.f.Save() }
func (x *xlsxSheet) Close() error { return x.f.Close() }

// csvSheet holds a CSV file in memory and rewrites it on Save.
type csvSheet struct {
	path string
	rows [][]string
}

func openCSV(path string) (*csvSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV %s: %w", path, err)
	}
	return &csvSheet{path: path, rows: rows}, nil
}

func (c *csvSheet) Rows() ([][]string, error) { return c.rows, nil }

func (c *csvSheet) Set(row, col int, value string) error {
	if row < 0 || row >= len(c.rows) || col < 0 {
		return fmt.Errorf("cell %d,%d out of range", row, col)
	}
	for len(c.rows[row]) <= col {
		c.rows[row] = append(c.rows[row], "")
	}
	c.rows[row][col] = value
	return nil
}

func (c *csvSheet) Save() error {
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(c.rows); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *csvSheet) Close() error { return nil }
