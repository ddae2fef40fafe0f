// Package events implementa el puerto cultivation.Notifier: eventos de cambio entre instancias
// sobre Kafka y el canal lateral de fallos de bitácora.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var (
	_ cultivation.Notifier = (*LogNotifier)(nil)
	_ cultivation.Notifier = (*KafkaNotifier)(nil)
)

// Cabeceras de los mensajes publicados.
const (
	HeaderEventType = "event_type"
	HeaderSource    = "source"
)

// LogNotifier notifica solo al log; es el notificador cuando no hay brokers configurados.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador de log.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "events").Logger()}
}

// Publish registra el evento a nivel debug.
func (n *LogNotifier) Publish(_ context.Context, ev cultivation.ChangeEvent) error {
	n.log.Debug().Str("op", ev.Op).Str("entity_type", ev.EntityType).Str("id", ev.ID).
		Str("actor_id", ev.ActorID).Msg("cambio confirmado")
	return nil
}

// ReportFailure registra el fallo de bitácora.
func (n *LogNotifier) ReportFailure(_ context.Context, f cultivation.Failure) {
	n.log.Error().Str("op", f.Op).Str("entity_type", f.EntityType).Str("id", f.ID).
		Str("error", f.Error).Msg("fallo en canal lateral")
}

// Writer subconjunto de kafka.Writer usado por el notificador.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterFactory crea un writer para un tópico.
type WriterFactory func(topic string) Writer

// KafkaWriterFactory writers síncronos con acks de todas las réplicas.
func KafkaWriterFactory(brokers []string) WriterFactory {
	return func(topic string) Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
}

// KafkaNotifier publica los eventos de cambio en Topic y los fallos en Topic+".failures".
// Los fallos además quedan en el log, también cuando Kafka no los acepta.
type KafkaNotifier struct {
	topic     string
	newWriter WriterFactory
	fallback  *LogNotifier
	log       zerolog.Logger

	mu      sync.Mutex
	writers map[string]Writer
}

// NewKafkaNotifier construye el notificador; los writers se crean al primer uso de cada tópico.
func NewKafkaNotifier(topic string, newWriter WriterFactory, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		topic:     topic,
		newWriter: newWriter,
		fallback:  NewLogNotifier(log),
		log:       log.With().Str("component", "events").Logger(),
		writers:   make(map[string]Writer),
	}
}

// FailureTopic tópico del canal lateral.
func (n *KafkaNotifier) FailureTopic() string { return n.topic + ".failures" }

// Publish escribe el evento con el grupo de registro como clave (orden por registro).
func (n *KafkaNotifier) Publish(ctx context.Context, ev cultivation.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evento: %w", err)
	}
	key := ev.RecordGroupID
	if key == "" {
		key = ev.ID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(ev.EntityType + "." + ev.Op)},
			{Key: HeaderSource, Value: []byte(ev.Source)},
		},
	}
	if err := n.writerFor(n.topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publicar en %s: %w", n.topic, err)
	}
	return nil
}

// ReportFailure registra el fallo en el log y lo publica en el tópico de fallos sin bloquear al llamador.
func (n *KafkaNotifier) ReportFailure(ctx context.Context, f cultivation.Failure) {
	n.fallback.ReportFailure(ctx, f)
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	msg := kafka.Message{
		Key:     []byte(f.ID),
		Value:   payload,
		Time:    f.At,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("failure." + f.Op)}},
	}
	if err := n.writerFor(n.FailureTopic()).WriteMessages(ctx, msg); err != nil {
		n.log.Warn().Err(err).Str("topic", n.FailureTopic()).Msg("no se pudo publicar el fallo")
	}
}

func (n *KafkaNotifier) writerFor(topic string) Writer {
	n.mu.Lock()
	defer n.mu.Unlock()
	if w, ok := n.writers[topic]; ok {
		return w
	}
	w := n.newWriter(topic)
	n.writers[topic] = w
	return w
}

// Close libera todos los writers.
func (n *KafkaNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var firstErr error
	for topic, w := range n.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(n.writers, topic)
	}
	return firstErr
}
