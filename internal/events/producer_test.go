package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestProducer_PublishesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &Producer{writer: w, topic: "crypto-signals", now: func() time.Time { return at }}

	require.NoError(t, p.PublishOpened(context.Background(), model.MonitoredSignal{ID: "s1", Pair: "BTC/USDT", Status: model.SignalOpen}))
	require.NoError(t, p.PublishClosed(context.Background(), model.ClosureEvent{SignalID: "s1", Pair: "BTC/USDT", Outcome: model.SignalTargetHit}))
	require.Len(t, w.msgs, 2)

	var opened, closed SignalEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &opened))
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &closed))

	assert.Equal(t, "BTC/USDT", string(w.msgs[0].Key))
	assert.Equal(t, EventSignalOpened, opened.EventType)
	require.NotNil(t, opened.Signal)
	assert.Equal(t, "s1", opened.Signal.ID)
	assert.Nil(t, opened.Closure)
	assert.Equal(t, at, opened.Timestamp)

	assert.Equal(t, EventSignalClosed, closed.EventType)
	require.NotNil(t, closed.Closure)
	assert.Equal(t, model.SignalTargetHit, closed.Closure.Outcome)
}

func TestProducer_WrapsWriteErrors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, now: time.Now}
	err := p.PublishOpened(context.Background(), model.MonitoredSignal{Pair: "ETH/USDT"})
	assert.ErrorContains(t, err, "broker down")
}
