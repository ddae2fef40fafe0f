package cultivation

import (
	"context"
	"time"
)

// Operaciones publicadas en ChangeEvent.Op.
const (
	OpCreate  = "create"
	OpAmend   = "amend"
	OpArchive = "archive"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// ChangeEvent notificación de una escritura confirmada. Source es la instancia que la originó.
type ChangeEvent struct {
	Op            string    `json:"op"`
	EntityType    string    `json:"entity_type"`
	ID            string    `json:"id"`
	RecordGroupID string    `json:"record_group_id,omitempty"`
	ActorID       string    `json:"actor_id"`
	Source        string    `json:"source"`
	At            time.Time `json:"at"`
}

// Failure fallo de bitácora (desenlaces, detalles de contaminación, auditoría) reportado fuera de banda.
type Failure struct {
	Op         string    `json:"op"`
	EntityType string    `json:"entity_type,omitempty"`
	ID         string    `json:"id,omitempty"`
	Error      string    `json:"error"`
	At         time.Time `json:"at"`
}

// Notifier puerto de salida de eventos (implementado en infrastructure/events).
type Notifier interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	ReportFailure(ctx context.Context, f Failure)
}

// Metrics puerto de métricas (implementado en infrastructure/metrics).
type Metrics interface {
	ObserveMutation(op string, d time.Duration, err error)
	SideChannelFailure(op string)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, ChangeEvent) error { return nil }
func (nopNotifier) ReportFailure(context.Context, Failure)     {}

type nopMetrics struct{}

func (nopMetrics) ObserveMutation(string, time.Duration, error) {}
func (nopMetrics) SideChannelFailure(string)                    {}
