package dtos

import (
	"infinite-experiment/reconboard/internal/models/entities"
)

// Request and response bodies for the dashboard API.

type SaveMappingReq struct {
	LeftTaskID  string             `json:"leftTaskId"`
	RightTaskID string             `json:"rightTaskId"`
	FieldMap    *entities.FieldMap `json:"fieldMap"`
}

type UpdateFieldMapReq struct {
	FieldMap *entities.FieldMap `json:"fieldMap"`
}

type TriggerRunResponse struct {
	ReconciliationID string `json:"reconciliationId"`
	Acknowledgement  string `json:"acknowledgement"`
	Phase            string `json:"phase"`
}

// RunView is a mapping's cached result plus the display labels the dashboard shows.
type RunView struct {
	Phase           string                        `json:"phase"`
	Result          entities.ReconciliationResult `json:"result"`
	MatchPercentage *float64                      `json:"matchPercentage,omitempty"`
	CountLabels     map[string]string             `json:"countLabels"`
	PreviewsEnabled bool                          `json:"previewsEnabled"`
}

type StartPairingReq struct {
	LeftTaskID  string `json:"leftTaskId"`
	RightTaskID string `json:"rightTaskId"`
	// MappingID seeds the session from an existing mapping when set.
	MappingID    string `json:"mappingId,omitempty"`
	PlaygroundID string `json:"playgroundId,omitempty"`
}

type PairingView struct {
	SessionID   string             `json:"sessionId"`
	MappingID   string             `json:"mappingId,omitempty"`
	LeftFields  []string           `json:"leftFields"`
	RightFields []string           `json:"rightFields"`
	ArmedLeft   string             `json:"armedLeft,omitempty"`
	ArmedRight  string             `json:"armedRight,omitempty"`
	FieldMap    *entities.FieldMap `json:"fieldMap"`
	LastAction  string             `json:"lastAction,omitempty"`
}

type DecodeSampleReq struct {
	Payload  string             `json:"payload"`
	Lines    []string           `json:"lines,omitempty"`
	FieldMap *entities.FieldMap `json:"fieldMap,omitempty"`
}

type DecodeSampleResponse struct {
	IsCompactEncoding bool                 `json:"isCompactEncoding" msgpack:"isCompactEncoding"`
	Table             entities.ParsedTable `json:"table" msgpack:"table"`
}

type PreviewViewResponse struct {
	ViewID          string                          `json:"viewId" msgpack:"viewId"`
	MappingID       string                          `json:"mappingId" msgpack:"mappingId"`
	ActiveCategory  entities.PreviewCategory        `json:"activeCategory" msgpack:"activeCategory"`
	PreviewsEnabled bool                            `json:"previewsEnabled" msgpack:"previewsEnabled"`
	Categories      []entities.PreviewCategoryState `json:"categories" msgpack:"categories"`
}

type AutoRefreshReq struct {
	Enabled bool `json:"enabled"`
}

type AutoRefreshResponse struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}
