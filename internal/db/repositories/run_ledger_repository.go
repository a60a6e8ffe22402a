package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/models/gorm"
)

// RunLedgerRepository writes terminal runs through GORM and reads history
// through sqlx.
type RunLedgerRepository struct {
	orm *gormlib.DB
	db  *sqlx.DB
	now func() time.Time
}

func NewRunLedgerRepository(orm *gormlib.DB, db *sqlx.DB) *RunLedgerRepository {
	return &RunLedgerRepository{orm: orm, db: db, now: time.Now}
}

// RecordRun upserts a run keyed by reconciliation id and execution timestamp.
func (r *RunLedgerRepository) RecordRun(ctx context.Context, result entities.ReconciliationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	run := gorm.ReconciliationRun{
		ReconciliationID:           result.ReconciliationID,
		ExecutionTimestamp:         result.ExecutionTimestamp,
		Status:                     string(result.Status),
		ReconciliationMethod:       string(result.ReconciliationMethod),
		Message:                    result.Message,
		LeftFileRowCount:           result.LeftFileRowCount,
		RightFileRowCount:          result.RightFileRowCount,
		CommonRowCount:             result.CommonRowCount,
		LeftFileExclusiveRowCount:  result.LeftFileExclusiveRowCount,
		RightFileExclusiveRowCount: result.RightFileExclusiveRowCount,
		Payload:                    datatypes.JSON(payload),
		RecordedAt:                 r.now().UTC(),
	}

	err = r.orm.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "reconciliation_id"}, {Name: "execution_timestamp"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"reconciliation_method",
				"message",
				"left_file_row_count",
				"right_file_row_count",
				"common_row_count",
				"left_file_exclusive_row_count",
				"right_file_exclusive_row_count",
				"payload",
				"recorded_at",
			}),
		}).
		Create(&run).Error
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", result.ReconciliationID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs for a mapping, newest first.
func (r *RunLedgerRepository) RecentRuns(ctx context.Context, reconciliationID string, limit int) ([]entities.RunLedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	runs := []entities.RunLedgerEntry{}
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(constants.SelectRunsByMapping), reconciliationID, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", reconciliationID, err)
	}
	return runs, nil
}

// StatusCounts tallies a mapping's recorded runs by status.
func (r *RunLedgerRepository) StatusCounts(ctx context.Context, reconciliationID string) (map[string]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		Total  int64  `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(constants.CountRunsByStatus), reconciliationID); err != nil {
		return nil, fmt.Errorf("failed to count runs for %s: %w", reconciliationID, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// LatestResult decodes the stored payload of the most recent run, nil when none exists.
func (r *RunLedgerRepository) LatestResult(ctx context.Context, reconciliationID string) (*entities.ReconciliationResult, error) {
	var run gorm.ReconciliationRun
	err := r.orm.WithContext(ctx).
		Where("reconciliation_id = ?", reconciliationID).
		Order("recorded_at DESC").
		First(&run).Error
	if errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run for %s: %w", reconciliationID, err)
	}

	var result entities.ReconciliationResult
	if err := json.Unmarshal(run.Payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode run payload: %w", err)
	}
	return &result, nil
}

// Ping checks the read-side connection.
func (r *RunLedgerRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
