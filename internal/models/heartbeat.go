package models

import "time"

// Heartbeat represents the structure for an agent heartbeat event.
type Heartbeat struct {
	DeviceID       string    `json:"device_id"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	KnownReports   int       `json:"known_reports"`
	AlertedReports int       `json:"alerted_reports"`
	HasPosition    bool      `json:"has_position"`

	// Host load, present when host sampling is enabled.
	CPUUsage        *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage     *float64 `json:"memory_usage,omitempty"`
	ProcessRSSBytes *uint64  `json:"process_rss_bytes,omitempty"`
}
