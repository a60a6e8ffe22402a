package entities

import "time"

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

// PollerStatus describes the background poll scheduler.
type PollerStatus struct {
	Running         bool      `json:"running"`
	AutoRefresh     bool      `json:"autoRefresh"`
	TrackedMappings int       `json:"trackedMappings"`
	LastCycleAt     time.Time `json:"lastCycleAt,omitempty"`
}

type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceStatus `json:"services"`
	Poller   PollerStatus             `json:"poller"`
	UpSince  time.Time                `json:"up_since"`
	Uptime   string                   `json:"uptime"`
}
