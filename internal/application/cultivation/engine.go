// Package cultivation implementa el motor de estado del laboratorio: versionado append-only,
// linaje y traspasos de cultivos, máquina de etapas de los Grow, costeo y bitácora de desenlaces.
//
// Cada mutación se serializa con mu, escribe en el almacén dentro de una única transacción y solo
// después del Commit aplica los cambios a la proyección en memoria que leen las vistas.
package cultivation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Engine motor de estado sobre un repository.Store.
type Engine struct {
	store    repository.Store
	log      zerolog.Logger
	notifier Notifier
	metrics  Metrics
	clock    func() time.Time
	newID    func() string
	instance string

	mu   sync.Mutex   // serializa mutaciones y Refresh
	view sync.RWMutex // protege proj frente a lecturas concurrentes
	proj *projection
}

// Option configura el Engine.
type Option func(*Engine)

// WithLogger logger estructurado del motor.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l.With().Str("component", "cultivation").Logger() }
}

// WithNotifier canal de eventos de cambio y de fallos de bitácora.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithMetrics colectores de métricas de mutaciones.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock reloj del motor (tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDGenerator generador de IDs de registro (tests).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithInstanceID identifica a esta instancia en los eventos publicados para ignorar su propio eco.
func WithInstanceID(id string) Option {
	return func(e *Engine) { e.instance = id }
}

// New construye el motor con la proyección vacía; llamar Refresh para cargarla desde el almacén.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		log:      zerolog.Nop(),
		notifier: nopNotifier{},
		metrics:  nopMetrics{},
		clock:    time.Now,
		newID:    uuid.NewString,
		instance: uuid.NewString(),
		proj:     newProjection(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InstanceID identificador de esta instancia en los eventos de cambio.
func (e *Engine) InstanceID() string { return e.instance }

func (e *Engine) now() time.Time { return e.clock().UTC() }

// Refresh recarga la proyección completa desde el almacén. Se invoca al arrancar y ante
// notificaciones de cambio externas; nunca mezcla filas viejas con nuevas.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := loadProjection(ctx, e.store.Tables())
	if err != nil {
		e.log.Error().Err(err).Str("backend", e.store.Backend()).Msg("recarga de proyección fallida")
		return err
	}
	e.view.Lock()
	e.proj = p
	e.view.Unlock()
	e.log.Debug().Str("backend", e.store.Backend()).
		Int("cultures", len(p.cultures)).
		Int("grows", len(p.grows)).
		Msg("proyección recargada")
	return nil
}

// HandleChange aplica una notificación de cambio externa (otra instancia escribió en el almacén).
func (e *Engine) HandleChange(ctx context.Context, ev ChangeEvent) error {
	if ev.Source == e.instance {
		return nil
	}
	return e.Refresh(ctx)
}

// txState cambios de proyección y eventos acumulados durante la transacción; se aplican tras Commit.
type txState struct {
	applies []func(*projection)
	events  []ChangeEvent
}

func (s *txState) stage(fn func(*projection)) { s.applies = append(s.applies, fn) }

func (s *txState) emit(ev ChangeEvent) { s.events = append(s.events, ev) }

// mutate ejecuta fn en una transacción del almacén. Si fn o el Commit fallan la proyección no se toca.
func (e *Engine) mutate(ctx context.Context, op string, fn func(tx repository.Tables, st *txState) error) error {
	start := time.Now()
	var st *txState
	err := e.store.Run(ctx, func(tx repository.Tables) error {
		st = &txState{}
		return fn(tx, st)
	})
	e.metrics.ObserveMutation(op, time.Since(start), err)
	if err != nil {
		e.log.Warn().Err(err).Str("op", op).Msg("mutación revertida")
		return err
	}

	e.view.Lock()
	for _, apply := range st.applies {
		apply(e.proj)
	}
	e.view.Unlock()

	for _, ev := range st.events {
		ev.Source = e.instance
		if err := e.notifier.Publish(ctx, ev); err != nil {
			e.log.Warn().Err(err).Str("op", ev.Op).Str("entity_type", ev.EntityType).Str("id", ev.ID).
				Msg("no se pudo publicar el evento de cambio")
		}
	}
	return nil
}

// reportFailure canal lateral: la bitácora histórica nunca bloquea la mutación principal.
func (e *Engine) reportFailure(ctx context.Context, op, entityType, id string, err error) {
	e.log.Error().Err(err).Str("op", op).Str("entity_type", entityType).Str("id", id).Msg("fallo en bitácora")
	e.metrics.SideChannelFailure(op)
	e.notifier.ReportFailure(ctx, Failure{
		Op:         op,
		EntityType: entityType,
		ID:         id,
		Error:      err.Error(),
		At:         e.now(),
	})
}

// saveRow sobrescribe todos los campos de la fila.
func saveRow[T any](ctx context.Context, table repository.Table[T], id string, row *T) error {
	patch, err := repository.PatchOf(row)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return table.Update(ctx, id, patch)
}
