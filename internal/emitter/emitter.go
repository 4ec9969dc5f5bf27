// Package emitter schedules periodic sync requests for connected users.
package emitter

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

// RequestPublisher emits sync-request events onto the bus.
type RequestPublisher interface {
	PublishSyncRequested(ctx context.Context, req domain.SyncRequest) error
}

// Periodic scans all connected connections on a fixed interval and emits one
// incremental sync request per connection. An emission failure for one
// connection never blocks the others.
type Periodic struct {
	connections      domain.ConnectionRepository
	publisher        RequestPublisher
	interval         time.Duration
	logger           *log.Logger
	shutdownComplete chan struct{}
}

// NewPeriodic constructs the emitter.
func NewPeriodic(connections domain.ConnectionRepository, publisher RequestPublisher, interval time.Duration, logger *log.Logger) *Periodic {
	if logger == nil {
		logger = log.New(log.Writer(), "[emitter] ", log.LstdFlags|log.Lshortfile)
	}
	return &Periodic{
		connections:      connections,
		publisher:        publisher,
		interval:         interval,
		logger:           logger,
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
func (p *Periodic) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		close(p.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := p.EmitTick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Printf("periodic emit error: %v", err)
		}
	}
}

// Wait blocks until the emitter has stopped.
func (p *Periodic) Wait() {
	<-p.shutdownComplete
}

// EmitTick runs one scan-and-emit pass. Exposed so a tick can be forced
// outside the schedule.
func (p *Periodic) EmitTick(ctx context.Context) error {
	connections, err := p.connections.ListByStatus(ctx, domain.ConnectionStatusConnected)
	if err != nil {
		return err
	}

	p.logger.Printf("emitting sync requests for %d connected connections", len(connections))

	for _, conn := range connections {
		req := domain.SyncRequest{
			UserID:        conn.UserID,
			Provider:      conn.Provider,
			IsInitialSync: false,
		}
		if err := p.publisher.PublishSyncRequested(ctx, req); err != nil {
			p.logger.Printf("failed to emit sync request (user=%s, provider=%s): %v", conn.UserID, conn.Provider, err)
			recordEmitFailure(string(conn.Provider))
			continue
		}
		recordEmitted(string(conn.Provider))
	}
	return nil
}
