package types

import "time"

// WSInfoResponse is sent once when a client connects.
type WSInfoResponse struct {
	Type      string `json:"type"` // "info"
	Version   string `json:"version"`
	Platform  string `json:"platform"`
	Title     string `json:"title"`
	Locale    string `json:"locale"`
	Supported bool   `json:"supported"` // host has a capture tool
}

// WSStateResponse carries the page element state.
type WSStateResponse struct {
	Type           string `json:"type"` // "state"
	TriggerEnabled bool   `json:"trigger_enabled"`
	Status         string `json:"status"`
	MeterWidth     string `json:"meter_width"`
}

// CaptureInfo describes the live capture session, if any.
type CaptureInfo struct {
	Active   bool      `json:"active"`
	Pending  bool      `json:"pending"`
	StreamID string    `json:"stream_id,omitempty"`
	Device   string    `json:"device,omitempty"`
	Started  time.Time `json:"started,omitzero"`
	Frames   int64     `json:"frames,omitempty"`
}

// AudioSettings is the data of an audio/get result.
type AudioSettings struct {
	Input   string `json:"input"`
	Command string `json:"command,omitempty"` // resolved capture tool
}

// EventsPage is the data of an events/view result.
type EventsPage struct {
	Events  any    `json:"events"`
	HasMore bool   `json:"has_more"`
	Path    string `json:"path"`
}
