package constants

// Ledger read queries use ? placeholders; repositories Rebind them for the active driver.
const (
	SelectRunsByMapping = `
	SELECT id, reconciliation_id, status, reconciliation_method, execution_timestamp,
	       left_file_row_count, right_file_row_count, common_row_count,
	       left_file_exclusive_row_count, right_file_exclusive_row_count, recorded_at
	FROM reconciliation_runs
	WHERE reconciliation_id = ?
	ORDER BY recorded_at DESC
	LIMIT ?
	`

	CountRunsByStatus = `
	SELECT status, COUNT(*) AS total
	FROM reconciliation_runs
	WHERE reconciliation_id = ?
	GROUP BY status
	`
)
