package dtos

import "infinite-experiment/reconboard/internal/models/entities"

// Wire types for the playground backend.

type CreateMappingReq struct {
	PlaygroundID string             `json:"playgroundId"`
	LeftTaskID   string             `json:"leftTaskId"`
	RightTaskID  string             `json:"rightTaskId"`
	FieldMap     *entities.FieldMap `json:"fieldMap"`
}

type UpdateMappingReq struct {
	ID       string             `json:"id"`
	FieldMap *entities.FieldMap `json:"fieldMap"`
}

// TaskFieldsResponse accepts either a bare array or {"fields": [...]}.
type TaskFieldsResponse struct {
	Fields []string `json:"fields"`
}

type SampleBlobResponse struct {
	Preview []string `json:"preview"`
}
