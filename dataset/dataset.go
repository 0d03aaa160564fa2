// Package dataset reads two-column sensor datasets from spreadsheets.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtraver/air-quality-analysis/observation"
)

const numColumns = 2

var ErrDataSource = errors.New("dataset: cannot read data source")

// Load reads the dataset at path. Files ending in .csv are parsed as CSV and
// anything else as an Excel workbook, of which the first sheet is used. The
// first row is a header and is skipped. Every other row must hold exactly two
// numeric cells, mapped to fields by order.
func Load(path string, order observation.ColumnOrder) ([]observation.Observation, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataSource, err)
	}

	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rows, err = readCSV(path)
	} else {
		rows, err = readExcel(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataSource, path, err)
	}

	obs, err := parseRows(rows, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataSource, path, err)
	}
	return obs, nil
}

func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	// Raw values so that number formats like "0.0%" don't leak into parsing.
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRows(rows [][]string, order observation.ColumnOrder) ([]observation.Observation, error) {
	// Spreadsheets often carry empty rows after the data.
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	if len(rows) < 2 {
		return nil, errors.New("need a header row and at least one data row")
	}
	if len(rows[0]) != numColumns {
		return nil, fmt.Errorf("header has %d columns, want %d", len(rows[0]), numColumns)
	}

	obs := make([]observation.Observation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		// Row numbers in messages are 1-based and count the header, like a spreadsheet's.
		line := i + 2

		if len(row) != numColumns {
			return nil, fmt.Errorf("row %d has %d columns, want %d", line, len(row), numColumns)
		}

		var vals [numColumns]float64
		for j, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %q is not a number", line, j+1, cell)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d column %d: %q is not a finite number", line, j+1, cell)
			}
			vals[j] = v
		}

		obs = append(obs, order.Observation(vals[0], vals[1]))
	}

	return obs, nil
}
