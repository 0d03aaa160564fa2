package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/mtraver/air-quality-analysis/observation"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("Failed to set row %d: %v", i+1, err)
		}
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "data.csv", "O2_Percentage,AQI\n20.9,12\n20.7, 35.5\n\n")

	cases := []struct {
		name  string
		order observation.ColumnOrder
		want  []observation.Observation
	}{
		{
			name:  "oxygen_first",
			order: observation.OxygenFirst,
			want:  []observation.Observation{{Oxygen: 20.9, AQI: 12}, {Oxygen: 20.7, AQI: 35.5}},
		},
		{
			name:  "aqi_first",
			order: observation.AQIFirst,
			want:  []observation.Observation{{Oxygen: 12, AQI: 20.9}, {Oxygen: 35.5, AQI: 20.7}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Load(path, c.order)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(got, c.want); diff != "" {
				t.Errorf("Unexpected result (-got +want):\n%s", diff)
			}
		})
	}
}

func TestLoadExcel(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"AQI", "Oxygen_Concentration"},
		{42, 20.5},
		{57.5, 20.1},
		{61, 19.8},
	})

	got, err := Load(path, observation.AQIFirst)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []observation.Observation{
		{Oxygen: 20.5, AQI: 42},
		{Oxygen: 20.1, AQI: 57.5},
		{Oxygen: 19.8, AQI: 61},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.xlsx") }},
		{"header_only", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI\n") }},
		{"empty", func(t *testing.T) string { return writeFile(t, "d.csv", "") }},
		{"three_columns", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI,PM\n20,1,2\n") }},
		{"short_row", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI\n20,1\n21\n") }},
		{"not_a_number", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI\n20,spam\n") }},
		{"nan", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI\n20,NaN\n") }},
		{"infinite", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI\n+Inf,42\n") }},
		{"empty_cell", func(t *testing.T) string { return writeFile(t, "d.csv", "O2,AQI\n20,\n") }},
		{"not_a_workbook", func(t *testing.T) string { return writeFile(t, "d.xlsx", "baked beans") }},
		{"excel_wide", func(t *testing.T) string {
			return writeWorkbook(t, [][]interface{}{{"AQI", "O2", "Temp"}, {1, 2, 3}})
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(c.path(t), observation.OxygenFirst)
			if !errors.Is(err, ErrDataSource) {
				t.Errorf("got error %v, want ErrDataSource", err)
			}
		})
	}
}
