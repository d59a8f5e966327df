package api

import "time"

// ------------------------------------------------------------------------------------------------
// General naming conventions:
// ------------------------------------------------------------------------------------------------
// - ...Config - represents an object specified by the user when submitting a run.
// - ...Record - represents the mutable execution state owned by the run store.
// - ...Request / ...Response - represent REST payloads.
// - ...Error - represents an error response
// ------------------------------------------------------------------------------------------------

// Error represents an error response
type Error struct {
	MessageCode string `json:"message_code"`
	Message     string `json:"message"`
	Trace       string `json:"trace"`
}

// MessageInfo represents a message from a downstream component
type MessageInfo struct {
	Message     string `json:"message"`
	MessageCode string `json:"message_code"`
}

// LogLine is a single timestamped entry in a run's append-only log.
type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}
