package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
	"github.com/guddu1cse/health-sync-engine/internal/events"
)

// errMalformedEvent marks payloads that can never be processed. The
// processor commits them instead of redelivering.
var errMalformedEvent = errors.New("malformed sync event")

// Syncer is the orchestration surface the handler drives.
type Syncer interface {
	Sync(ctx context.Context, req domain.SyncRequest) (domain.SyncOutcome, error)
}

// SyncHandler decodes sync-request events and runs the reconciliation. Sync
// failures are recorded as connection state by the orchestrator and resolve
// to a nil return here; only infrastructure errors propagate, leaving the
// message uncommitted for redelivery.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler constructs a SyncHandler.
func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

// Handle processes one sync-request event.
func (h *SyncHandler) Handle(ctx context.Context, msg Message) error {
	var evt events.SyncRequested
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if evt.UserID == "" {
		return fmt.Errorf("%w: missing userId", errMalformedEvent)
	}
	provider, ok := domain.ParseProvider(evt.Provider)
	if !ok {
		return fmt.Errorf("%w: unknown provider %q", errMalformedEvent, evt.Provider)
	}

	outcome, err := h.syncer.Sync(ctx, domain.SyncRequest{
		UserID:        evt.UserID,
		Provider:      provider,
		IsInitialSync: evt.IsInitialSync,
	})
	if err != nil {
		return err
	}

	recordSyncOutcome(evt.Provider, outcome)
	return nil
}
