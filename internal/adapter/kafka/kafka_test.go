package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("match-1"),
		Value:     []byte(`{"id":"match-1"}`),
		Topic:     "candidate-job-matches",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("crm")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("match-1"), raw.Key)
	assert.JSONEq(t, `{"id":"match-1"}`, string(raw.Value))
	assert.Equal(t, "candidate-job-matches", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "crm", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestMapMessageToRawEvent_NoHeaders(t *testing.T) {
	raw := mapMessageToRawEvent(kafkago.Message{Value: []byte(`{}`)})
	assert.NotNil(t, raw.Headers)
	assert.Empty(t, raw.Headers)
}

func TestToMessage(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	distance := 169.49
	out, err := domain.SerializeMatchDistance(domain.MatchDistance{
		ID:                "match-1",
		CandidatePostcode: "BS1 4DJ",
		JobPostcode:       "SW1A 1AA",
		Unit:              domain.Kilometers,
		Distance:          &distance,
		Resolved:          true,
		ProcessedAt:       now,
	})
	require.NoError(t, err)

	msg := toMessage(out)

	assert.Equal(t, []byte("match-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"distance":169.49`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "processed_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "resolved", msg.Headers[1].Key)
	assert.Equal(t, []byte("true"), msg.Headers[1].Value)
	assert.Equal(t, "unit", msg.Headers[2].Key)
	assert.Equal(t, []byte("km"), msg.Headers[2].Value)
}

func TestToMessage_NoHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("{}")})
	assert.Empty(t, msg.Headers)
}

// fakeFetcher replays scripted fetch results, then blocks until the context ends.
type fakeFetcher struct {
	mu        sync.Mutex
	steps     []fetchStep
	committed []int64
}

type fetchStep struct {
	msg kafkago.Message
	err error
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.steps) > 0 {
		step := f.steps[0]
		f.steps = f.steps[1:]
		f.mu.Unlock()
		return step.msg, step.err
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

func newTestReader(f *fakeFetcher) *Reader {
	return &Reader{
		reader:        f,
		flushInterval: 50 * time.Millisecond,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestReader_ExtractBatch_FullBatch(t *testing.T) {
	f := &fakeFetcher{steps: []fetchStep{
		{msg: kafkago.Message{Offset: 1}},
		{msg: kafkago.Message{Offset: 2}},
	}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, batch[1].Commit(context.Background()))
	assert.Equal(t, []int64{2}, f.committed)
}

func TestReader_ExtractBatch_FlushIntervalReturnsPartialBatch(t *testing.T) {
	f := &fakeFetcher{steps: []fetchStep{{msg: kafkago.Message{Offset: 1}}}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestReader_ExtractBatch_FetchErrorKeepsFetchedMessages(t *testing.T) {
	f := &fakeFetcher{steps: []fetchStep{
		{msg: kafkago.Message{Offset: 1, Value: []byte("m1")}},
		{msg: kafkago.Message{Offset: 2, Value: []byte("m2")}},
		{err: errors.New("broker gone")},
		{msg: kafkago.Message{Offset: 3, Value: []byte("m3")}},
	}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(1), batch[0].Offset)
	assert.Equal(t, int64(2), batch[1].Offset)

	batch, err = r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, int64(3), batch[0].Offset)
}

func TestReader_ExtractBatch_FetchErrorOnEmptyBatch(t *testing.T) {
	f := &fakeFetcher{steps: []fetchStep{{err: errors.New("broker gone")}}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch message: broker gone")
	assert.Empty(t, batch)
}

func TestReader_ExtractBatch_ContextCanceled(t *testing.T) {
	r := newTestReader(&fakeFetcher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := r.ExtractBatch(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, batch)
}
