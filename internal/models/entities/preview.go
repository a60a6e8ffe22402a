package entities

import "fmt"

// PreviewCategory is one of the three sample partitions.
type PreviewCategory string

const (
	CategoryCommon         PreviewCategory = "common"
	CategoryLeftExclusive  PreviewCategory = "leftExclusive"
	CategoryRightExclusive PreviewCategory = "rightExclusive"
)

// CategoryOrder is the priority used when choosing the active category.
var CategoryOrder = []PreviewCategory{CategoryCommon, CategoryLeftExclusive, CategoryRightExclusive}

func ParsePreviewCategory(s string) (PreviewCategory, error) {
	for _, c := range CategoryOrder {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown preview category %q", s)
}

// PreviewData is a successfully fetched and decoded sample.
type PreviewData struct {
	IsCompactEncoding bool        `json:"isCompactEncoding" msgpack:"isCompactEncoding"`
	Table             ParsedTable `json:"parsedTable" msgpack:"parsedTable"`
	RawText           string      `json:"rawText" msgpack:"rawText"`
}

// PreviewCategoryState is a snapshot of one category's fetch state.
// PermanentError means no fetch will be attempted again for the open view.
type PreviewCategoryState struct {
	Category       PreviewCategory `json:"category" msgpack:"category"`
	S3Path         string          `json:"s3Path,omitempty" msgpack:"s3Path,omitempty"`
	Loading        bool            `json:"loading" msgpack:"loading"`
	Data           *PreviewData    `json:"data" msgpack:"data"`
	Error          string          `json:"error,omitempty" msgpack:"error,omitempty"`
	PermanentError bool            `json:"permanentError" msgpack:"permanentError"`
}
