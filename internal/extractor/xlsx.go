package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExtractXLSXSheets returns one unit per non-empty sheet, rows joined by
// newlines and cells by tabs. Sheets are numbered from 1 in workbook order.
func ExtractXLSXSheets(data []byte) ([]Unit, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var units []Unit
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		var sb strings.Builder
		sb.WriteString(sheet)
		sb.WriteString("\n")
		wrote := false
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
			wrote = true
		}
		if !wrote {
			continue
		}

		sheetNumber := i + 1
		units = append(units, Unit{PageNumber: &sheetNumber, Text: strings.TrimSpace(sb.String())})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no text could be extracted from workbook")
	}

	return units, nil
}
