package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Stubs ──────────────────────────────────────────────────────────────────

type stubWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
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

func newNotifier() (*KafkaNotifier, map[string]*stubWriter) {
	writers := map[string]*stubWriter{}
	n := NewKafkaNotifier("cultivation.changes", func(topic string) Writer {
		w := &stubWriter{}
		writers[topic] = w
		return w
	}, zerolog.Nop())
	return n, writers
}

// ─── KafkaNotifier ──────────────────────────────────────────────────────────

func TestKafkaNotifier_PublicaConClaveDeGrupo(t *testing.T) {
	n, writers := newNotifier()
	ev := cultivation.ChangeEvent{
		Op: cultivation.OpAmend, EntityType: "culture", ID: "v2", RecordGroupID: "g1",
		ActorID: "user-1", Source: "inst-a", At: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.Publish(context.Background(), ev))

	w := writers["cultivation.changes"]
	require.NotNil(t, w)
	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "g1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte("culture.amend")})
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderSource, Value: []byte("inst-a")})

	var got cultivation.ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev, got)

	require.NoError(t, n.Publish(context.Background(), ev))
	assert.Len(t, writers, 1, "un writer por tópico")
	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_ErrorDeEscritura(t *testing.T) {
	n := NewKafkaNotifier("t", func(string) Writer { return &stubWriter{err: errors.New("broker down")} }, zerolog.Nop())
	err := n.Publish(context.Background(), cultivation.ChangeEvent{Op: cultivation.OpCreate, ID: "x"})
	assert.ErrorContains(t, err, "broker down")

	// el canal lateral nunca propaga el fallo
	n.ReportFailure(context.Background(), cultivation.Failure{Op: "audit", Error: "boom"})
}

func TestKafkaNotifier_FallosVanAlTopicoDeFallos(t *testing.T) {
	n, writers := newNotifier()
	n.ReportFailure(context.Background(), cultivation.Failure{Op: "record_outcome", ID: "g1", Error: "timeout"})

	w := writers["cultivation.changes.failures"]
	require.NotNil(t, w)
	require.Len(t, w.messages, 1)
	assert.JSONEq(t, `{"op":"record_outcome","id":"g1","error":"timeout","at":"0001-01-01T00:00:00Z"}`, string(w.messages[0].Value))
}

// ─── Listener ───────────────────────────────────────────────────────────────

func eventMessage(t *testing.T, ev cultivation.ChangeEvent, offset int64) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Topic: "cultivation.changes", Offset: offset, Value: raw}
}

func TestListener_AplicaYConfirma(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{
		eventMessage(t, cultivation.ChangeEvent{Op: cultivation.OpCreate, ID: "c1", Source: "inst-b"}, 1),
		{Topic: "cultivation.changes", Offset: 2, Value: []byte("not json")},
		eventMessage(t, cultivation.ChangeEvent{Op: cultivation.OpDelete, ID: "c2", Source: "inst-b"}, 3),
	}}
	var seen []string
	l := NewListener(reader, func(_ context.Context, ev cultivation.ChangeEvent) error {
		seen = append(seen, ev.ID)
		return nil
	}, zerolog.Nop())

	err := l.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"c1", "c2"}, seen)
	assert.Equal(t, 3, reader.commitCalls, "el mensaje malformado también se confirma")
}

func TestListener_NoConfirmaSiElHandlerFalla(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{
		eventMessage(t, cultivation.ChangeEvent{Op: cultivation.OpUpdate, ID: "g1"}, 1),
	}}
	l := NewListener(reader, func(context.Context, cultivation.ChangeEvent) error {
		return errors.New("store unavailable")
	}, zerolog.Nop())

	require.ErrorIs(t, l.Run(context.Background()), context.Canceled)
	assert.Equal(t, 0, reader.commitCalls)
}
