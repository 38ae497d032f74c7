package core

// tokenizer.go turns raw CSV text into a RawTable.
//
// The header line is split naively on commas; data lines go through a
// quote-aware state machine that handles embedded commas, doubled quotes,
// and stray whitespace. A row whose cell count disagrees with the header
// is kept and flagged with a warning; a row that fails tokenization
// outright (unterminated quote) is dropped and flagged with an error.
// Only empty input is fatal.

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyInput is returned when the input is empty or whitespace-only.
var ErrEmptyInput = errors.New("empty input")

// Parse tokenizes raw CSV text into a RawTable plus per-row issues.
// It fails only on empty input; every other problem is recorded as an
// issue and parsing continues.
func Parse(text string) (*RawTable, []Issue, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyInput
	}

	lines := splitLines(text)

	// First non-blank line is the header, split naively on commas.
	headerAt := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			headerAt = i
			break
		}
	}

	headers := strings.Split(lines[headerAt], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	table := &RawTable{Headers: headers}
	var issues []Issue

	rowNum := 0
	for _, line := range lines[headerAt+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rowNum++

		cells, err := tokenizeLine(line)
		if err != nil {
			issues = append(issues, Issue{
				Row:      rowNum,
				Message:  fmt.Sprintf("malformed row: %v", err),
				Severity: SeverityError,
			})
			continue
		}

		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}

		if len(cells) != len(headers) {
			issues = append(issues, Issue{
				Row:      rowNum,
				Message:  fmt.Sprintf("expected %d columns, got %d", len(headers), len(cells)),
				Severity: SeverityWarning,
			})
		}

		table.Rows = append(table.Rows, cells)
		table.RowNums = append(table.RowNums, rowNum)
	}

	return table, issues, nil
}

// tokenizeLine splits a single data line into cells with a quote-aware
// state machine. Inside quotes a doubled quote is an escaped literal quote
// and commas are literal; outside quotes a comma ends the cell.
func tokenizeLine(line string) ([]string, error) {
	var cells []string
	var cur strings.Builder

	inQuotes := false
	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			cells = append(cells, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}

	if inQuotes {
		return nil, errors.New("unterminated quoted field")
	}

	cells = append(cells, cur.String())
	return cells, nil
}

// splitLines splits on newlines, tolerating CRLF endings.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

// SanitizeUTF8 replaces invalid byte sequences with the replacement rune
// and strips a leading BOM, so tokenization sees clean text.
func SanitizeUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
