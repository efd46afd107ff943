package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type wordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    wordBody `xml:"body"`
}

// wordBody keeps paragraphs and tables in document order.
type wordBody struct {
	Blocks []wordBlock `xml:",any"`
}

type wordBlock struct {
	XMLName xml.Name
	Runs    []wordRun      `xml:"r"`
	Rows    []wordTableRow `xml:"tr"`
}

type wordTableRow struct {
	Cells []wordTableCell `xml:"tc"`
}

type wordTableCell struct {
	Paragraphs []wordBlock `xml:"p"`
}

type wordRun struct {
	Text []string `xml:"t"`
	Tabs []string `xml:"tab"`
}

func ExtractDOCX(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}

	var documentFile *zip.File
	for _, file := range zipReader.File {
		if file.Name == "word/document.xml" {
			documentFile = file
			break
		}
	}

	if documentFile == nil {
		return "", fmt.Errorf("document.xml not found in DOCX")
	}

	xmlFile, err := documentFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer xmlFile.Close()

	xmlData, err := io.ReadAll(xmlFile)
	if err != nil {
		return "", fmt.Errorf("failed to read document.xml: %w", err)
	}

	var doc wordDocument
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}

	var sb strings.Builder
	for _, block := range doc.Body.Blocks {
		switch block.XMLName.Local {
		case "p":
			sb.WriteString(paragraphText(block))
			sb.WriteString("\n")
		case "tbl":
			for _, row := range block.Rows {
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					var parts []string
					for _, p := range cell.Paragraphs {
						parts = append(parts, paragraphText(p))
					}
					cells = append(cells, strings.TrimSpace(strings.Join(parts, " ")))
				}
				sb.WriteString(strings.Join(cells, "\t"))
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}

	extractedText := strings.TrimSpace(sb.String())
	if extractedText == "" {
		return "", fmt.Errorf("no text could be extracted from DOCX")
	}

	return extractedText, nil
}

func paragraphText(p wordBlock) string {
	var sb strings.Builder
	for _, run := range p.Runs {
		for range run.Tabs {
			sb.WriteString("\t")
		}
		for _, t := range run.Text {
			sb.WriteString(t)
		}
	}
	return sb.String()
}
