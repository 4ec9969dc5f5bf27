package consumer

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:     "health.sync.requested",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Key:       []byte("u1:GOOGLE_FIT"),
		Value:     []byte(`{"userId":"u1","provider":"GOOGLE_FIT","isInitialSync":true}`),
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	syncer := &stubSyncer{outcome: domain.SyncOutcomeSuccess}
	handler := NewSyncHandler(syncer)

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, syncer.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "u1", syncer.last.UserID)
	require.Equal(t, domain.ProviderGoogleFit, syncer.last.Provider)
	require.True(t, syncer.last.IsInitialSync)
}

func TestProcessorSkipsCommitOnInfrastructureError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "health.sync.requested",
		Offset: 20,
		Time:   time.Now().UTC(),
		Value:  []byte(`{"userId":"u2","provider":"FITBIT","isInitialSync":false}`),
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	syncer := &stubSyncer{err: errors.New("storage unavailable")}
	handler := NewSyncHandler(syncer)

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, syncer.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := [][]byte{
		[]byte(`not-json`),
		[]byte(`{"provider":"GOOGLE_FIT"}`),
		[]byte(`{"userId":"u1","provider":"MYSPACE_FIT"}`),
	}

	for _, payload := range cases {
		reader := &stubReader{
			messages: []kafka.Message{{Topic: "health.sync.requested", Value: payload}},
			after:    contextCanceled,
		}
		syncer := &stubSyncer{}
		processor := NewProcessor(reader, NewSyncHandler(syncer), WithLogger(log.New(testWriter{t}, "", 0)))

		err := processor.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)

		// Committed without reaching the orchestrator.
		require.Equal(t, 0, syncer.calls, "payload %s", payload)
		require.Equal(t, 1, reader.commitCalls, "payload %s", payload)
	}
}

func TestSyncHandlerSwallowsRecordedFailures(t *testing.T) {
	syncer := &stubSyncer{outcome: domain.SyncOutcomeFailed}
	handler := NewSyncHandler(syncer)

	err := handler.Handle(context.Background(), Message{
		Payload: []byte(`{"userId":"u1","provider":"GOOGLE_FIT"}`),
	})
	require.NoError(t, err)
	require.Equal(t, 1, syncer.calls)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubSyncer struct {
	calls   int
	outcome domain.SyncOutcome
	err     error
	last    domain.SyncRequest
}

func (s *stubSyncer) Sync(_ context.Context, req domain.SyncRequest) (domain.SyncOutcome, error) {
	s.calls++
	s.last = req
	return s.outcome, s.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
