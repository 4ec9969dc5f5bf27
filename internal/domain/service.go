package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/guddu1cse/health-sync-engine/internal/observability"
)

const (
	initialSyncWindow     = 30 * 24 * time.Hour
	incrementalSyncWindow = 24 * time.Hour
)

// ErrUnsupportedProvider is returned when no fetcher is registered for a
// connection's provider.
var ErrUnsupportedProvider = errors.New("no fetcher registered for provider")

// TokenCipher decrypts stored credential envelopes and encrypts rotated ones.
type TokenCipher interface {
	Decrypt(envelope string) string
	Encrypt(plaintext string) (string, error)
}

// CompletionPublisher emits the sync-completed event after a successful run.
type CompletionPublisher interface {
	PublishMetricsIngested(ctx context.Context, userID string, completedAt time.Time) error
}

// SyncRequest is the decoded inbound sync trigger.
type SyncRequest struct {
	UserID        string
	Provider      Provider
	IsInitialSync bool
}

// SyncOutcome classifies how a sync attempt resolved.
type SyncOutcome string

const (
	// SyncOutcomeSkipped means no connected connection existed for the
	// request. A benign no-op, never surfaced as an error.
	SyncOutcomeSkipped SyncOutcome = "skipped"
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeFailed  SyncOutcome = "failed"
)

// Service orchestrates one sync attempt: resolve connection, transition to
// SYNCING, decrypt credentials, fetch, merge, terminal transition, publish.
// Provider and merge failures resolve to a FAILED state transition; only
// storage or bus infrastructure errors escape as Go errors.
type Service struct {
	connections    ConnectionRepository
	tracker        *StateTracker
	merger         *Merger
	cipher         TokenCipher
	fetchers       map[Provider]Fetcher
	publisher      CompletionPublisher
	locks          *connectionLocks
	attemptTimeout time.Duration
	logger         *log.Logger
	now            func() time.Time
}

// ServiceOption configures optional behaviour for the Service.
type ServiceOption func(*Service)

// WithLogger overrides the logger used by the service.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAttemptTimeout bounds the wall time of a single sync attempt. A stuck
// provider call becomes a FAILED transition instead of a blocked worker.
func WithAttemptTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.attemptTimeout = timeout
	}
}

// NewService constructs the sync orchestrator.
func NewService(
	connections ConnectionRepository,
	metrics MetricRepository,
	cipher TokenCipher,
	fetchers map[Provider]Fetcher,
	publisher CompletionPublisher,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		connections:    connections,
		tracker:        NewStateTracker(connections),
		merger:         NewMerger(metrics),
		cipher:         cipher,
		fetchers:       fetchers,
		publisher:      publisher,
		locks:          newConnectionLocks(),
		attemptTimeout: 2 * time.Minute,
		logger:         log.New(log.Writer(), "[sync] ", log.LstdFlags|log.Lshortfile),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one reconciliation attempt for the requested connection.
func (s *Service) Sync(ctx context.Context, req SyncRequest) (SyncOutcome, error) {
	conn, err := s.connections.FindByUserAndProvider(ctx, req.UserID, req.Provider)
	if err != nil {
		return "", err
	}
	if conn == nil || conn.Status != ConnectionStatusConnected {
		s.logger.Printf("no active connection (user=%s, provider=%s)", req.UserID, req.Provider)
		return SyncOutcomeSkipped, nil
	}

	lock := s.locks.acquire(conn.Key())
	defer lock.Unlock()

	// Re-read inside the critical section: a concurrent attempt may have
	// written state between the lookup and the lock.
	conn, err = s.connections.FindByUserAndProvider(ctx, req.UserID, req.Provider)
	if err != nil {
		return "", err
	}
	if conn == nil || conn.Status != ConnectionStatusConnected {
		return SyncOutcomeSkipped, nil
	}

	if err := s.tracker.MarkSyncing(ctx, conn); err != nil {
		return "", err
	}

	started := s.now()
	result, attemptErr := s.attempt(ctx, conn, req.IsInitialSync)
	elapsed := s.now().Sub(started)
	observability.RecordSyncDuration(string(conn.Provider), elapsed)

	s.applyRotatedCredentials(conn, result)

	if attemptErr != nil {
		s.logger.Printf("sync failed (user=%s, provider=%s): %v", req.UserID, req.Provider, attemptErr)
		if err := s.tracker.MarkFailed(ctx, conn, attemptErr); err != nil {
			return "", err
		}
		return SyncOutcomeFailed, nil
	}

	if err := s.tracker.MarkSuccess(ctx, conn, elapsed); err != nil {
		return "", err
	}

	completedAt := s.now().UTC()
	if err := s.publisher.PublishMetricsIngested(ctx, conn.UserID, completedAt); err != nil {
		return "", err
	}

	s.logger.Printf("sync completed (user=%s, provider=%s, buckets=%d, elapsed=%s)",
		req.UserID, req.Provider, len(result.Metrics), elapsed)
	return SyncOutcomeSuccess, nil
}

// attempt covers the fallible middle of the sequence: decrypt, fetch, merge.
func (s *Service) attempt(ctx context.Context, conn *Connection, isInitialSync bool) (FetchResult, error) {
	if s.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
	}

	fetcher, ok := s.fetchers[conn.Provider]
	if !ok {
		return FetchResult{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, conn.Provider)
	}

	creds := Credentials{
		AccessToken:  s.cipher.Decrypt(conn.AccessToken),
		RefreshToken: s.cipher.Decrypt(conn.RefreshToken),
	}

	end := s.now().UTC()
	start := end.Add(-incrementalSyncWindow)
	if isInitialSync {
		start = end.Add(-initialSyncWindow)
	}

	result, err := fetcher.FetchDailyMetrics(ctx, creds, start, end, conn.UserID)
	if err != nil {
		return result, err
	}

	for _, candidate := range result.Metrics {
		candidate.UserID = conn.UserID
		candidate.Provider = conn.Provider
		if err := s.merger.Merge(ctx, candidate); err != nil {
			return result, err
		}
	}
	return result, nil
}

// applyRotatedCredentials re-encrypts refreshed tokens onto the connection so
// the terminal state write persists them. Rotation info survives failed
// attempts too.
func (s *Service) applyRotatedCredentials(conn *Connection, result FetchResult) {
	if result.RotatedAccessToken != "" {
		if sealed, err := s.cipher.Encrypt(result.RotatedAccessToken); err == nil {
			conn.AccessToken = sealed
		}
	}
	if result.RotatedRefreshToken != "" {
		if sealed, err := s.cipher.Encrypt(result.RotatedRefreshToken); err == nil {
			conn.RefreshToken = sealed
		}
	}
}
