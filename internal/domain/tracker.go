package domain

import (
	"context"
	"time"
)

// StateTracker owns the sync-status fields of a connection and their
// transition effects. State is written to storage before any external call
// is made, so a crash mid-sync leaves an observable SYNCING row.
type StateTracker struct {
	connections ConnectionRepository
	now         func() time.Time
}

// NewStateTracker constructs a StateTracker.
func NewStateTracker(connections ConnectionRepository) *StateTracker {
	return &StateTracker{connections: connections, now: time.Now}
}

// MarkSyncing records the start of a sync attempt.
func (t *StateTracker) MarkSyncing(ctx context.Context, conn *Connection) error {
	conn.SyncStatus = SyncStatusSyncing
	conn.UpdatedAt = t.now().UTC()
	return t.connections.Update(ctx, conn)
}

// MarkSuccess records a completed attempt: stamps LastSyncedAt and the
// elapsed duration, clears the error, and resets the retry counter.
func (t *StateTracker) MarkSuccess(ctx context.Context, conn *Connection, elapsed time.Duration) error {
	now := t.now().UTC()
	conn.SyncStatus = SyncStatusSuccess
	conn.LastSyncedAt = &now
	conn.LastSyncDurationMillis = elapsed.Milliseconds()
	conn.ErrorMessage = ""
	conn.SyncRetryCount = 0
	conn.UpdatedAt = now
	return t.connections.Update(ctx, conn)
}

// MarkFailed records a failed attempt: stores the failure description and
// increments the retry counter. LastSyncedAt keeps its previous value.
func (t *StateTracker) MarkFailed(ctx context.Context, conn *Connection, cause error) error {
	conn.SyncStatus = SyncStatusFailed
	conn.ErrorMessage = cause.Error()
	conn.SyncRetryCount++
	conn.UpdatedAt = t.now().UTC()
	return t.connections.Update(ctx, conn)
}
