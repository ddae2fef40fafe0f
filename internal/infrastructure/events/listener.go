package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Reader subconjunto de kafka.Reader usado por el listener.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ChangeHandler aplica un evento de cambio externo (Engine.HandleChange).
type ChangeHandler func(ctx context.Context, ev cultivation.ChangeEvent) error

// NewKafkaReader reader de consumidor de grupo para el tópico de cambios.
// Cada instancia debe tener su propio groupID para recibir todos los eventos.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
}

// Listener consume eventos de cambio de otras instancias y recarga la proyección local.
type Listener struct {
	reader  Reader
	handler ChangeHandler
	log     zerolog.Logger
}

// NewListener construye el listener.
func NewListener(reader Reader, handler ChangeHandler, log zerolog.Logger) *Listener {
	return &Listener{
		reader:  reader,
		handler: handler,
		log:     log.With().Str("component", "events").Logger(),
	}
}

// Run bloquea procesando mensajes hasta que ctx se cancela. Un mensaje malformado se confirma y se
// descarta; si el handler falla el mensaje no se confirma y se vuelve a leer tras reiniciar.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			l.log.Warn().Err(err).Msg("lectura de Kafka fallida")
			continue
		}

		var ev cultivation.ChangeEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.Op == "" {
			l.log.Warn().Err(err).Str("topic", msg.Topic).Int("partition", msg.Partition).
				Int64("offset", msg.Offset).Msg("evento malformado descartado")
			l.commit(ctx, msg)
			continue
		}

		if err := l.handler(ctx, ev); err != nil {
			l.log.Error().Err(err).Str("op", ev.Op).Str("entity_type", ev.EntityType).Str("id", ev.ID).
				Msg("no se pudo aplicar el evento externo")
			continue
		}
		l.commit(ctx, msg)
	}
}

func (l *Listener) commit(ctx context.Context, msg kafka.Message) {
	if err := l.reader.CommitMessages(ctx, msg); err != nil {
		l.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("commit de Kafka fallido")
	}
}

// Close cierra el reader.
func (l *Listener) Close() error { return l.reader.Close() }
