package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
	"github.com/guddu1cse/health-sync-engine/internal/events"
)

// messageWriter is the minimal producer surface the publisher needs.
type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Publisher serialises engine events onto their topics. Partition keys are
// the connection identity (userID:provider) so per-connection ordering holds
// end to end.
type Publisher struct {
	producer       messageWriter
	requestedTopic string
	ingestedTopic  string
}

// NewPublisher constructs a Publisher for the configured topics.
func NewPublisher(producer messageWriter, requestedTopic, ingestedTopic string) *Publisher {
	return &Publisher{
		producer:       producer,
		requestedTopic: requestedTopic,
		ingestedTopic:  ingestedTopic,
	}
}

// PublishSyncRequested emits one sync-request event for a connection.
func (p *Publisher) PublishSyncRequested(ctx context.Context, req domain.SyncRequest) error {
	payload, err := json.Marshal(events.SyncRequested{
		UserID:        req.UserID,
		Provider:      string(req.Provider),
		IsInitialSync: req.IsInitialSync,
	})
	if err != nil {
		return err
	}

	return p.producer.WriteMessages(ctx, p.requestedTopic, kafka.Message{
		Key:   []byte(req.UserID + ":" + string(req.Provider)),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// PublishMetricsIngested emits the sync-completed event.
func (p *Publisher) PublishMetricsIngested(ctx context.Context, userID string, completedAt time.Time) error {
	payload, err := json.Marshal(events.MetricsIngested{
		UserID: userID,
		Date:   completedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return p.producer.WriteMessages(ctx, p.ingestedTopic, kafka.Message{
		Key:   []byte(userID),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}
