package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
)

// ReconciliationRun is one terminal run of a mapping. A run is identified by
// the mapping id and the backend's execution timestamp.
type ReconciliationRun struct {
	ID                         string         `gorm:"column:id;primaryKey;type:varchar(36)"`
	ReconciliationID           string         `gorm:"column:reconciliation_id;type:varchar(128);not null;uniqueIndex:idx_runs_execution,priority:1"`
	ExecutionTimestamp         string         `gorm:"column:execution_timestamp;type:varchar(64);not null;uniqueIndex:idx_runs_execution,priority:2"`
	Status                     string         `gorm:"column:status;type:varchar(20);not null"`
	ReconciliationMethod       string         `gorm:"column:reconciliation_method;type:varchar(40)"`
	Message                    string         `gorm:"column:message;type:text"`
	LeftFileRowCount           *int64         `gorm:"column:left_file_row_count"`
	RightFileRowCount          *int64         `gorm:"column:right_file_row_count"`
	CommonRowCount             *int64         `gorm:"column:common_row_count"`
	LeftFileExclusiveRowCount  *int64         `gorm:"column:left_file_exclusive_row_count"`
	RightFileExclusiveRowCount *int64         `gorm:"column:right_file_exclusive_row_count"`
	Payload                    datatypes.JSON `gorm:"column:payload"`
	RecordedAt                 time.Time      `gorm:"column:recorded_at;not null;index"`
}

func (ReconciliationRun) TableName() string {
	return "reconciliation_runs"
}

func (r *ReconciliationRun) BeforeCreate(tx *gormlib.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
