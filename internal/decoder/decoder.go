// Package decoder turns reconciliation sample payloads into tables.
//
// Two payload shapes are understood: plain delimited text (CSV or TSV with
// double-quote quoting) and the compact encoding, a JSON array of strings
// where each string is one distinct pipe-delimited row annotated with its
// repetition count. Decoding never fails; unusable input degrades to an
// empty table.
package decoder

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"infinite-experiment/reconboard/internal/models/entities"
)

var compactMarkers = []string{"(Count:", "(Left:", "(Right:"}

var (
	dualCountPattern = regexp.MustCompile(`(?s)^(.*?)\s*\(Left:\s*(-?\d+)\s*,\s*Right:\s*(-?\d+)\s*\)\s*$`)
	countPattern     = regexp.MustCompile(`(?s)^(.*?)\s*\(Count:\s*(-?\d+)\s*\)\s*$`)
)

// hardRowLimit bounds every decode, whatever MaxRows asks for. Compact
// counts come straight off the wire.
var hardRowLimit = 1_000_000

// Options bounds the work a single decode may do.
type Options struct {
	// MaxRows caps the number of expanded rows. Zero, negative or oversized
	// values fall back to the hard limit of one million rows.
	MaxRows int
}

func (o Options) rowLimit() int {
	if o.MaxRows <= 0 || o.MaxRows > hardRowLimit {
		return hardRowLimit
	}
	return o.MaxRows
}

// Result is a decoded payload together with the path that produced it.
type Result struct {
	Table   entities.ParsedTable
	Compact bool
}

// Decode classifies payload and decodes it under the hard row limit.
func Decode(payload string, fieldMap *entities.FieldMap) entities.ParsedTable {
	return DecodeWithOptions(payload, fieldMap, Options{}).Table
}

// DecodeWithOptions classifies payload and decodes it.
func DecodeWithOptions(payload string, fieldMap *entities.FieldMap, opts Options) Result {
	if entries, ok := compactEntries(payload); ok {
		return Result{Table: decodeCompact(entries, fieldMap, opts), Compact: true}
	}
	return Result{Table: ParseDelimited(payload, opts)}
}

// DecodeLines decodes a sample blob delivered as a list of lines. A blob whose
// lines are themselves compact entries is decoded as one compact array; any
// other blob is joined with newlines and classified as a whole.
func DecodeLines(lines []string, fieldMap *entities.FieldMap, opts Options) (Result, string) {
	raw := strings.Join(lines, "\n")
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if !strings.HasPrefix(first, "[") && hasCompactMarker(first) {
			return Result{Table: decodeCompact(lines, fieldMap, opts), Compact: true}, raw
		}
	}
	return DecodeWithOptions(raw, fieldMap, opts), raw
}

// IsCompactEncoding reports whether payload would take the compact path.
func IsCompactEncoding(payload string) bool {
	_, ok := compactEntries(payload)
	return ok
}

func hasCompactMarker(s string) bool {
	for _, m := range compactMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func compactEntries(payload string) ([]string, bool) {
	if !hasCompactMarker(payload) {
		return nil, false
	}
	var entries []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &entries); err != nil {
		return nil, false
	}
	if len(entries) == 0 || !hasCompactMarker(entries[0]) {
		return nil, false
	}
	return entries, true
}

// DecodeCompact expands already-split compact entries.
func DecodeCompact(entries []string, fieldMap *entities.FieldMap) entities.ParsedTable {
	return decodeCompact(entries, fieldMap, Options{})
}

func decodeCompact(entries []string, fieldMap *entities.FieldMap, opts Options) (table entities.ParsedTable) {
	defer func() {
		if r := recover(); r != nil {
			table = entities.EmptyTable()
		}
	}()

	if len(entries) == 0 {
		return entities.EmptyTable()
	}

	firstValues, _ := parseEntry(entries[0])
	headers := compactHeaders(len(firstValues), fieldMap)

	limit := opts.rowLimit()
	rows := make([][]string, 0, min(len(entries), limit))
	for _, entry := range entries {
		values, multiplicity := parseEntry(entry)
		if multiplicity <= 0 {
			continue
		}
		row := fitRow(values, len(headers))
		for i := 0; i < multiplicity; i++ {
			if len(rows) >= limit {
				return entities.ParsedTable{Headers: headers, Rows: rows}
			}
			rows = append(rows, slices.Clone(row))
		}
	}
	return entities.ParsedTable{Headers: headers, Rows: rows}
}

// parseEntry strips the count annotation and splits the row values.
// An entry without a recognised annotation has multiplicity 0.
func parseEntry(entry string) ([]string, int) {
	if m := dualCountPattern.FindStringSubmatch(entry); m != nil {
		left, errL := strconv.Atoi(m[2])
		right, errR := strconv.Atoi(m[3])
		if errL != nil || errR != nil {
			return strings.Split(m[1], "|"), 0
		}
		return strings.Split(m[1], "|"), max(left, right)
	}
	if m := countPattern.FindStringSubmatch(entry); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return strings.Split(m[1], "|"), 0
		}
		return strings.Split(m[1], "|"), n
	}
	return strings.Split(entry, "|"), 0
}

// compactHeaders names columns after the field map's left keys, falling back
// to "Column N" for slots the map does not cover.
func compactHeaders(columns int, fieldMap *entities.FieldMap) []string {
	keys := fieldMap.Keys()
	n := max(columns, len(keys))
	headers := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(keys) {
			headers[i] = keys[i]
			continue
		}
		headers[i] = fmt.Sprintf("Column %d", i+1)
	}
	return headers
}

// fitRow pads or truncates values to width cells.
func fitRow(values []string, width int) []string {
	row := make([]string, width)
	copy(row, values)
	return row
}
