package models

import "time"

// Alert is raised when a drain's CRI reaches the configured threshold.
type Alert struct {
	ID        string      `json:"id"`
	DrainID   string      `json:"drain_id"`
	Name      string      `json:"name"`
	CRI       int         `json:"cri"`
	PrevCRI   *int        `json:"prev_cri,omitempty"`
	Status    DrainStatus `json:"status"`
	Latitude  float64     `json:"lat"`
	Longitude float64     `json:"lng"`
	RaisedAt  time.Time   `json:"raised_at"`
}
