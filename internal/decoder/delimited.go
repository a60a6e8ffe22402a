package decoder

import (
	"strings"

	"infinite-experiment/reconboard/internal/models/entities"
)

// ParseDelimited parses CSV or TSV text. The delimiter is a tab only when the
// first line has strictly more tabs than commas. The first line is the header.
func ParseDelimited(text string, opts Options) entities.ParsedTable {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return entities.EmptyTable()
	}

	delim := DetectDelimiter(lines[0])
	headers := SplitDelimitedLine(lines[0], delim)

	limit := opts.rowLimit()
	rows := make([][]string, 0, min(len(lines)-1, limit))
	for _, line := range lines[1:] {
		if len(rows) >= limit {
			break
		}
		rows = append(rows, fitRow(SplitDelimitedLine(line, delim), len(headers)))
	}
	return entities.ParsedTable{Headers: headers, Rows: rows}
}

// DetectDelimiter picks ',' or '\t' for a header line.
func DetectDelimiter(line string) rune {
	if strings.Count(line, "\t") > strings.Count(line, ",") {
		return '\t'
	}
	return ','
}

// SplitDelimitedLine splits one line on delim outside double quotes.
// Inside quotes, "" is a literal quote character.
func SplitDelimitedLine(line string, delim rune) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}

func nonBlankLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
