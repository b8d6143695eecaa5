// Package csvparse tokenizes spreadsheet CSV exports into rows of trimmed fields.
//
// The parser is deliberately lenient: an unterminated quote consumes the rest of
// the input instead of failing, and \r\n, \r and \n are all row terminators.
// No header handling or typing happens here.
package csvparse

import (
	"strings"
	"unicode"
)

// Parse splits text into rows of fields. Quoted fields may contain commas,
// newlines and doubled quotes ("") standing for a literal quote. A final row
// without a terminator is emitted when it has any content.
func Parse(text string) [][]string {
	var (
		rows    [][]string
		row     []string
		cur     strings.Builder
		inQuote bool
	)

	endField := func() {
		row = append(row, TrimField(cur.String()))
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		var next byte
		if i+1 < len(text) {
			next = text[i+1]
		}

		switch {
		case ch == '"' && inQuote && next == '"':
			cur.WriteByte('"')
			i++
		case ch == '"':
			inQuote = !inQuote
		case !inQuote && ch == ',':
			endField()
		case !inQuote && (ch == '\n' || ch == '\r'):
			if ch == '\r' && next == '\n' {
				i++
			}
			endField()
			rows = append(rows, row)
			row = nil
		default:
			cur.WriteByte(ch)
		}
	}

	if cur.Len() > 0 || len(row) > 0 {
		endField()
		rows = append(rows, row)
	}

	return rows
}

// TrimField removes surrounding whitespace and byte order marks.
func TrimField(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '\ufeff' || unicode.IsSpace(r)
	})
}
