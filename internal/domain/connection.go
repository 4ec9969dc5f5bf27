// Package domain defines the business logic for the health sync engine.
package domain

import "time"

// Provider identifies the external fitness platform a connection belongs to.
type Provider string

const (
	ProviderGoogleFit     Provider = "GOOGLE_FIT"
	ProviderAppleHealth   Provider = "APPLE_HEALTH"
	ProviderSamsungHealth Provider = "SAMSUNG_HEALTH"
	ProviderFitbit        Provider = "FITBIT"
)

// ParseProvider validates a provider name from an inbound payload.
func ParseProvider(name string) (Provider, bool) {
	switch Provider(name) {
	case ProviderGoogleFit, ProviderAppleHealth, ProviderSamsungHealth, ProviderFitbit:
		return Provider(name), true
	}
	return "", false
}

// ConnectionStatus is the connectivity axis of a connection.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusError        ConnectionStatus = "ERROR"
)

// SyncStatus is the sync axis of a connection, independent of connectivity.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "IDLE"
	SyncStatusSyncing SyncStatus = "SYNCING"
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// Connection is the persisted link between one user and one provider,
// unique on (UserID, Provider).
type Connection struct {
	ID           string
	UserID       string
	Provider     Provider
	AccessToken  string // encrypted at rest
	RefreshToken string // encrypted at rest
	Status       ConnectionStatus
	SyncStatus   SyncStatus
	LastSyncedAt *time.Time
	// LastSyncDurationMillis is the wall-clock duration of the most recent
	// successful sync attempt.
	LastSyncDurationMillis int64
	ErrorMessage           string
	SyncRetryCount         int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Key returns the identity used for per-connection mutual exclusion and
// event partitioning.
func (c *Connection) Key() string {
	return c.UserID + ":" + string(c.Provider)
}
