// Package events defines the message-bus payloads this service consumes and emits.
package events

// SyncRequested asks the engine to reconcile one user/provider connection.
// Emitted by the periodic emitter, the manual trigger endpoint, and external
// systems.
type SyncRequested struct {
	UserID        string `json:"userId"`
	Provider      string `json:"provider"`
	IsInitialSync bool   `json:"isInitialSync"`
}

// MetricsIngested announces a completed sync. Absence of this event is the
// only externally observable signal of a failed attempt.
type MetricsIngested struct {
	UserID string `json:"userId"`
	Date   string `json:"date"` // RFC3339 completion timestamp
}
