package autoreply

import (
	"regexp"
	"strings"
)

// rowMarkerPattern matches the inline side-effect marker the prompt asks
// the model to emit when a conversation yields a row for the linked sheet:
//
//	[SPREADSHEET_ADD: value1 | value2 | value3]
//
// The syntax is an external contract with the prompting strategy; only the
// first occurrence in a reply is honored.
var rowMarkerPattern = regexp.MustCompile(`\[SPREADSHEET_ADD:([^\]]*)\]`)

// RowCommand is the parsed form of the marker: an ordered, positional list
// of column values.
type RowCommand struct {
	Values []string
}

// ExtractRowCommand scans text for the first row marker. When found it
// returns the parsed command and the text with the marker substring
// removed and trimmed; otherwise it returns the text unchanged.
func ExtractRowCommand(text string) (*RowCommand, string, bool) {
	loc := rowMarkerPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text, false
	}

	inner := text[loc[2]:loc[3]]
	parts := strings.Split(inner, "|")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.TrimSpace(p))
	}

	cleaned := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return &RowCommand{Values: values}, cleaned, true
}

// BuildRow zips command values against the sheet headers by position.
// Short value lists pad with empty strings; extra values beyond the header
// count are dropped. A command is never rejected for shape.
func BuildRow(headers []string, values []string) []string {
	row := make([]string, len(headers))
	for i := range headers {
		if i < len(values) {
			row[i] = values[i]
		}
	}
	return row
}
