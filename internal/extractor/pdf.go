package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFPages returns one unit per page that yields text, keeping the
// original page numbers.
func ExtractPDFPages(data []byte) ([]Unit, error) {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var units []Unit
	numPages := pdfReader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pageNumber := i
		units = append(units, Unit{PageNumber: &pageNumber, Text: text})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no text could be extracted from PDF")
	}

	return units, nil
}
