package entities

import "time"

// ReconciliationMapping pairs two tasks' output fields for a reconciliation run.
// ID is empty until the backend persists the mapping.
type ReconciliationMapping struct {
	ID           string    `json:"id,omitempty"`
	PlaygroundID string    `json:"playgroundId"`
	LeftTaskID   string    `json:"leftTaskId"`
	RightTaskID  string    `json:"rightTaskId"`
	FieldMap     *FieldMap `json:"fieldMap"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

func (m *ReconciliationMapping) Persisted() bool {
	return m != nil && m.ID != ""
}

func (m ReconciliationMapping) Clone() ReconciliationMapping {
	out := m
	out.FieldMap = m.FieldMap.Clone()
	return out
}
