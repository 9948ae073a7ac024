package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet extracts cell text from workbooks, one tab-separated line per
// row, sheets in workbook order.
type Spreadsheet struct{}

// NewSpreadsheet returns the workbook extractor.
func NewSpreadsheet() *Spreadsheet {
	return &Spreadsheet{}
}

func (s *Spreadsheet) Name() string {
	return "spreadsheet"
}

func (s *Spreadsheet) CanHandle(path string) bool {
	return extMatches(path, map[string]bool{".xlsx": true, ".xlsm": true})
}

func (s *Spreadsheet) Extract(_ context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
