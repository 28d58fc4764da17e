package schema

import "time"

// StoreStatus represents the status of a metric store.
type StoreStatus struct {
	Backend      string    `json:"backend"`
	Location     string    `json:"location,omitempty"`
	Connected    bool      `json:"connected"`
	TotalRecords int       `json:"total_records"`
	ProjectCount int       `json:"project_count"`
	OldestRecord time.Time `json:"oldest_record"`
	NewestRecord time.Time `json:"newest_record"`
}
