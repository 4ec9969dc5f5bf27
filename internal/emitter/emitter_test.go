package emitter

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

func TestEmitTickEmitsPerConnectedConnection(t *testing.T) {
	repo := &stubConnections{connections: []domain.Connection{
		{UserID: "u1", Provider: domain.ProviderGoogleFit, Status: domain.ConnectionStatusConnected},
		{UserID: "u2", Provider: domain.ProviderFitbit, Status: domain.ConnectionStatusConnected},
	}}
	publisher := &stubPublisher{}

	p := NewPeriodic(repo, publisher, time.Hour, log.New(testWriter{t}, "", 0))
	require.NoError(t, p.EmitTick(context.Background()))

	require.Equal(t, domain.ConnectionStatusConnected, repo.listedStatus)
	require.Len(t, publisher.requests, 2)
	require.Equal(t, "u1", publisher.requests[0].UserID)
	require.False(t, publisher.requests[0].IsInitialSync)
	require.Equal(t, domain.ProviderFitbit, publisher.requests[1].Provider)
}

func TestEmitTickIsolatesPublishFailures(t *testing.T) {
	repo := &stubConnections{connections: []domain.Connection{
		{UserID: "u1", Provider: domain.ProviderGoogleFit, Status: domain.ConnectionStatusConnected},
		{UserID: "u2", Provider: domain.ProviderGoogleFit, Status: domain.ConnectionStatusConnected},
		{UserID: "u3", Provider: domain.ProviderGoogleFit, Status: domain.ConnectionStatusConnected},
	}}
	publisher := &stubPublisher{failFor: "u2"}

	p := NewPeriodic(repo, publisher, time.Hour, log.New(testWriter{t}, "", 0))
	require.NoError(t, p.EmitTick(context.Background()))

	// u2's failure did not prevent u3's emission.
	require.Len(t, publisher.requests, 2)
	require.Equal(t, "u1", publisher.requests[0].UserID)
	require.Equal(t, "u3", publisher.requests[1].UserID)
}

func TestEmitTickPropagatesListErrors(t *testing.T) {
	repo := &stubConnections{listErr: errors.New("storage down")}
	p := NewPeriodic(repo, &stubPublisher{}, time.Hour, log.New(testWriter{t}, "", 0))

	require.Error(t, p.EmitTick(context.Background()))
}

type stubConnections struct {
	connections  []domain.Connection
	listErr      error
	listedStatus domain.ConnectionStatus
}

func (s *stubConnections) FindByUserAndProvider(context.Context, string, domain.Provider) (*domain.Connection, error) {
	return nil, nil
}

func (s *stubConnections) ListByStatus(_ context.Context, status domain.ConnectionStatus) ([]domain.Connection, error) {
	s.listedStatus = status
	return s.connections, s.listErr
}

func (s *stubConnections) Update(context.Context, *domain.Connection) error { return nil }

type stubPublisher struct {
	requests []domain.SyncRequest
	failFor  string
}

func (s *stubPublisher) PublishSyncRequested(_ context.Context, req domain.SyncRequest) error {
	if req.UserID == s.failFor {
		return errors.New("broker unavailable")
	}
	s.requests = append(s.requests, req)
	return nil
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
