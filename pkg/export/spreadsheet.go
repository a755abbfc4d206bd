package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"keyword-agent/pkg/research"
)

const (
	MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	TrendsFileName      = "google_trends_keywords.xlsx"
	SuggestionsFileName = "yandex_suggest_keywords.xlsx"

	sheetName = "Sheet1"
)

var (
	TrendsLabels      = []string{"Keyword", "Monthly Searches (Yandex)"}
	SuggestionsLabels = []string{"Keyword"}
)

// Record is anything that renders to one spreadsheet row.
type Record interface {
	Cells() []any
}

// Rows converts records to cell rows, keeping their order.
func Rows[R Record](records []R) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = r.Cells()
	}
	return rows
}

// ToSpreadsheet writes a single-sheet workbook: labels as the header row,
// then one row per entry of rows in order. Nil cells are left empty.
func ToSpreadsheet(rows [][]any, labels []string) ([]byte, error) {
	if len(labels) == 0 {
		return nil, errors.New("at least one column label is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	for col, label := range labels {
		if err := setCell(f, col+1, 1, label); err != nil {
			return nil, err
		}
	}
	for i, row := range rows {
		if len(row) > len(labels) {
			return nil, fmt.Errorf("row %d has %d cells for %d columns", i, len(row), len(labels))
		}
		for col, v := range row {
			if v == nil {
				continue
			}
			if err := setCell(f, col+1, i+2, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, v); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}

func TrendsWorkbook(items []research.EnrichedKeyword) ([]byte, error) {
	return ToSpreadsheet(Rows(items), TrendsLabels)
}

func SuggestionsWorkbook(items []research.SuggestionRecord) ([]byte, error) {
	return ToSpreadsheet(Rows(items), SuggestionsLabels)
}

// ReadRows returns the header and data rows of the first sheet. Data rows are
// padded to the header width so empty cells read back as "".
func ReadRows(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, errors.New("workbook has no header row")
	}

	header := all[0]
	rows := make([][]string, 0, len(all)-1)
	for _, r := range all[1:] {
		for len(r) < len(header) {
			r = append(r, "")
		}
		rows = append(rows, r)
	}
	return header, rows, nil
}
