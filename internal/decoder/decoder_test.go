package decoder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/reconboard/internal/models/entities"
)

func TestDecode_CountExpansion(t *testing.T) {
	got := Decode(`["a|b (Count: 3)"]`, nil)

	want := entities.ParsedTable{
		Headers: []string{"Column 1", "Column 2"},
		Rows:    [][]string{{"a", "b"}, {"a", "b"}, {"a", "b"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_DualCountUsesLargerSide(t *testing.T) {
	for _, payload := range []string{`["x (Left: 2, Right: 5)"]`, `["x (Left: 5, Right: 2)"]`} {
		got := Decode(payload, nil)
		require.Len(t, got.Rows, 5, payload)
		for _, row := range got.Rows {
			assert.Equal(t, []string{"x"}, row)
		}
		assert.Equal(t, []string{"Column 1"}, got.Headers)
	}
}

func TestDecode_FieldMapHeaders(t *testing.T) {
	fm := entities.NewFieldMap(
		entities.FieldPair{Left: "id", Right: "userId"},
		entities.FieldPair{Left: "amt", Right: "total"},
	)

	got := Decode(`["1|2 (Count: 1)"]`, fm)

	assert.Equal(t, []string{"id", "amt"}, got.Headers)
	assert.Equal(t, [][]string{{"1", "2"}}, got.Rows)
}

func TestDecode_FieldMapShorterThanColumnsPads(t *testing.T) {
	fm := entities.NewFieldMap(entities.FieldPair{Left: "id", Right: "userId"})

	got := Decode(`["1|2|3 (Count: 1)"]`, fm)

	assert.Equal(t, []string{"id", "Column 2", "Column 3"}, got.Headers)
}

func TestDecode_MalformedEntryContributesNothing(t *testing.T) {
	assert.NotPanics(t, func() {
		got := Decode(`["no-annotation-here"]`, nil)
		assert.Empty(t, got.Rows)
	})

	got := DecodeCompact([]string{"a|b (Count: 1)", "no-annotation-here", "c|d (Count: 2)"}, nil)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"c", "d"}}, got.Rows)
}

func TestDecode_ZeroAndNegativeCountsSkipped(t *testing.T) {
	got := DecodeCompact([]string{"a (Count: 0)", "b (Count: -4)", "c (Left: 0, Right: 0)"}, nil)

	assert.Equal(t, []string{"Column 1"}, got.Headers)
	assert.Empty(t, got.Rows)
}

func TestDecode_RowsMatchHeaderWidth(t *testing.T) {
	got := DecodeCompact([]string{"a|b (Count: 1)", "c (Count: 1)", "d|e|f (Count: 1)"}, nil)

	for _, row := range got.Rows {
		assert.Len(t, row, len(got.Headers))
	}
	assert.Equal(t, []string{"c", ""}, got.Rows[1])
	assert.Equal(t, []string{"d", "e"}, got.Rows[2])
}

func TestDecode_ExpandedRowsAreIndependent(t *testing.T) {
	got := Decode(`["a|b (Count: 2)"]`, nil)
	got.Rows[0][0] = "changed"

	assert.Equal(t, "a", got.Rows[1][0])
}

func TestDecode_MaxRows(t *testing.T) {
	res := DecodeWithOptions(`["a (Count: 10)", "b (Count: 10)"]`, nil, Options{MaxRows: 4})

	assert.True(t, res.Compact)
	assert.Len(t, res.Table.Rows, 4)
}

func TestDecode_HugeCountStopsAtHardLimit(t *testing.T) {
	prev := hardRowLimit
	hardRowLimit = 50
	t.Cleanup(func() { hardRowLimit = prev })

	for _, opts := range []Options{{}, {MaxRows: -1}, {MaxRows: 10_000}} {
		res := DecodeWithOptions(`["x (Count: 999999999999)"]`, nil, opts)
		assert.True(t, res.Compact)
		assert.Len(t, res.Table.Rows, 50, "MaxRows=%d", opts.MaxRows)
	}

	assert.Len(t, Decode(`["x (Left: 999999999999, Right: 1)"]`, nil).Rows, 50)
}

func TestDecode_MarkerWithoutJSONFallsBackToText(t *testing.T) {
	res := DecodeWithOptions("name,note\nx,(Count: 3)", nil, Options{})

	assert.False(t, res.Compact)
	assert.Equal(t, []string{"name", "note"}, res.Table.Headers)
	assert.Equal(t, [][]string{{"x", "(Count: 3)"}}, res.Table.Rows)
}

func TestDecode_FirstElementWithoutMarkerIsNotCompact(t *testing.T) {
	assert.False(t, IsCompactEncoding(`["plain", "x (Count: 2)"]`))
	assert.True(t, IsCompactEncoding(` ["x (Count: 2)"] `))
	assert.False(t, IsCompactEncoding(`[]`))
}

func TestDecode_EmptyPayload(t *testing.T) {
	got := Decode("", nil)

	assert.Empty(t, got.Headers)
	assert.Empty(t, got.Rows)
}

func TestDecodeLines(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		wantCompact bool
		wantRows    int
	}{
		{"entries per line", []string{"a|b (Count: 2)", "c|d (Left: 1, Right: 3)"}, true, 5},
		{"single json array line", []string{`["a|b (Count: 2)"]`}, true, 2},
		{"csv lines", []string{"h1,h2", "1,2", "", "3,4"}, false, 2},
		{"no lines", nil, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, raw := DecodeLines(tt.lines, nil, Options{})

			assert.Equal(t, tt.wantCompact, res.Compact)
			assert.Len(t, res.Table.Rows, tt.wantRows)
			if len(tt.lines) > 0 {
				assert.NotEmpty(t, raw)
			}
		})
	}
}
