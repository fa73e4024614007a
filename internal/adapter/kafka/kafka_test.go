package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("mumbai"),
		Value:     []byte(`{"Region":"mumbai","Indicator":"contamination","Value":95}`),
		Topic:     "indicator-readings",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("collector")},
		},
	}

	r := &Reader{}
	raw := r.mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("mumbai"), raw.Key)
	assert.JSONEq(t, `{"Region":"mumbai","Indicator":"contamination","Value":95}`, string(raw.Value))
	assert.Equal(t, "indicator-readings", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "collector", raw.Headers["source"])
	assert.NotNil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	frozen := time.Date(2025, 7, 14, 6, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	event := domain.NewTransitionEvent("mumbai",
		time.Date(2025, 7, 14, 6, 0, 0, 0, time.UTC),
		domain.LevelWatch, domain.LevelWarning, 0.72)

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("mumbai"), msg.Key)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "to_level", msg.Headers[0].Key)
	assert.Equal(t, []byte("WARNING"), msg.Headers[0].Value)
	assert.Equal(t, "emitted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(frozen.Format(time.RFC3339)), msg.Headers[1].Value)

	var roundtrip domain.TransitionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.Equal(t, event.ID, roundtrip.ID)
	assert.Equal(t, domain.LevelWatch, roundtrip.From)
	assert.Equal(t, domain.LevelWarning, roundtrip.To)
	assert.Equal(t, 0.72, roundtrip.Score)
}
