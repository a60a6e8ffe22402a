package entities

import "time"

// RunLedgerEntry is a stored run as read back for history views.
type RunLedgerEntry struct {
	ID                         string    `db:"id" json:"id"`
	ReconciliationID           string    `db:"reconciliation_id" json:"reconciliationId"`
	Status                     string    `db:"status" json:"status"`
	ReconciliationMethod       *string   `db:"reconciliation_method" json:"reconciliationMethod,omitempty"`
	ExecutionTimestamp         string    `db:"execution_timestamp" json:"executionTimestamp"`
	LeftFileRowCount           *int64    `db:"left_file_row_count" json:"leftFileRowCount,omitempty"`
	RightFileRowCount          *int64    `db:"right_file_row_count" json:"rightFileRowCount,omitempty"`
	CommonRowCount             *int64    `db:"common_row_count" json:"commonRowCount,omitempty"`
	LeftFileExclusiveRowCount  *int64    `db:"left_file_exclusive_row_count" json:"leftFileExclusiveRowCount,omitempty"`
	RightFileExclusiveRowCount *int64    `db:"right_file_exclusive_row_count" json:"rightFileExclusiveRowCount,omitempty"`
	RecordedAt                 time.Time `db:"recorded_at" json:"recordedAt"`
}
