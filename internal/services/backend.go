package services

import (
	"context"

	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
)

// The playground backend as seen by each service. providers.PlaygroundAPIProvider
// satisfies all of them.

type MappingBackend interface {
	CreateMapping(ctx context.Context, req dtos.CreateMappingReq) (*entities.ReconciliationMapping, int, error)
	ListMappings(ctx context.Context, playgroundID string) ([]entities.ReconciliationMapping, int, error)
	UpdateMapping(ctx context.Context, req dtos.UpdateMappingReq) (*entities.ReconciliationMapping, int, error)
	DeleteMapping(ctx context.Context, mappingID string) (int, error)
}

type FieldSource interface {
	GetTaskFields(ctx context.Context, taskID string) ([]string, int, error)
}

type RunBackend interface {
	TriggerRun(ctx context.Context, reconciliationID string) (string, int, error)
	GetRunStatus(ctx context.Context, reconciliationID string) (*entities.StatusUpdate, int, error)
	GetRunResult(ctx context.Context, reconciliationID string) (*entities.ReconciliationResult, int, error)
}

type SampleSource interface {
	GetSampleBlob(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error)
}
