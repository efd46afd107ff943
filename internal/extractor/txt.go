package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExtractTXT decodes plain text (UTF-8, UTF-16 with BOM, GB18030 or
// Windows-1252) and normalizes line endings.
func ExtractTXT(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty text file")
	}

	text, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text file: %w", err)
	}

	text = cleanText(text)

	if text == "" {
		return "", fmt.Errorf("no text could be extracted from file")
	}

	return text, nil
}

type byteOrderMark struct {
	prefix  []byte
	decoder func() transform.Transformer
}

var byteOrderMarks = []byteOrderMark{
	{[]byte{0xEF, 0xBB, 0xBF}, nil},
	{[]byte{0xFF, 0xFE}, func() transform.Transformer {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	}},
	{[]byte{0xFE, 0xFF}, func() transform.Transformer {
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	}},
}

func decodeText(data []byte) (string, error) {
	for _, bom := range byteOrderMarks {
		if !bytes.HasPrefix(data, bom.prefix) {
			continue
		}
		if bom.decoder == nil {
			return string(data[len(bom.prefix):]), nil
		}
		return transformString(bom.decoder(), data)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	// Chinese exports are usually GB18030; anything else that looks like text
	// is read as Windows-1252.
	if decoded, err := transformString(simplifiedchinese.GB18030.NewDecoder(), data); err == nil && !strings.ContainsRune(decoded, utf8.RuneError) {
		return decoded, nil
	}

	if !looksLikeText(data) {
		return "", fmt.Errorf("file does not appear to be text")
	}

	return transformString(charmap.Windows1252.NewDecoder(), data)
}

func transformString(t transform.Transformer, data []byte) (string, error) {
	decoded, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// cleanText normalizes line endings, trims lines and collapses runs of blank
// lines into a single paragraph break.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")

	var cleaned []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(cleaned) > 0
			continue
		}
		if blank {
			cleaned = append(cleaned, "")
			blank = false
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// looksLikeText samples the head of data and requires at least 80% of the
// bytes to be printable, whitespace or non-ASCII.
func looksLikeText(data []byte) bool {
	sample := data[:min(len(data), 512)]
	if len(sample) == 0 {
		return false
	}

	printable := 0
	for _, b := range sample {
		if (b >= 32 && b <= 126) || b >= 0x80 || b == '\t' || b == '\n' || b == '\r' {
			printable++
		}
	}

	return printable*5 >= len(sample)*4
}
