package cultivation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ObservationInput observación a registrar sobre un Grow o un cultivo.
type ObservationInput struct {
	Type         string
	Title        string
	Notes        string
	Date         *time.Time
	HealthRating *int
}

// FlushInput cosecha de un Grow.
type FlushInput struct {
	WetWeight   decimal.Decimal
	DryWeight   decimal.Decimal
	HarvestedAt *time.Time
	Notes       string
}

func validObservationType(t string) bool {
	switch t {
	case entity.ObservationGeneral, entity.ObservationGrowth, entity.ObservationContamination,
		entity.ObservationMilestone, entity.ObservationHarvest:
		return true
	}
	return false
}

func (e *Engine) newObservation(in ObservationInput, now time.Time) (entity.Observation, error) {
	if in.Type == "" {
		in.Type = entity.ObservationGeneral
	}
	if !validObservationType(in.Type) {
		return entity.Observation{}, fmt.Errorf("%w: tipo de observación %q", domain.ErrInvalidInput, in.Type)
	}
	if in.HealthRating != nil && (*in.HealthRating < 1 || *in.HealthRating > 5) {
		return entity.Observation{}, fmt.Errorf("%w: la salud va de 1 a 5", domain.ErrInvalidInput)
	}
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}
	obs := entity.Observation{
		ID:    e.newID(),
		Date:  date,
		Type:  in.Type,
		Title: strings.TrimSpace(in.Title),
		Notes: strings.TrimSpace(in.Notes),
	}
	if in.HealthRating != nil {
		v := *in.HealthRating
		obs.HealthRating = &v
	}
	return obs, nil
}

// stampStage mueve g a stage y fija la marca temporal correspondiente.
func stampStage(g *entity.Grow, stage string, now time.Time) {
	g.CurrentStage = stage
	switch stage {
	case entity.StageColonization:
		g.ColonizationStartedAt = &now
	case entity.StageFruiting:
		g.FruitingStartedAt = &now
	case entity.StageCompleted:
		g.CompletedAt = &now
		g.Status = entity.GrowStatusCompleted
	case entity.StageContaminated:
		g.ContaminatedAt = &now
		g.Status = entity.GrowStatusFailed
	case entity.StageAborted:
		g.AbortedAt = &now
		g.Status = entity.GrowStatusAborted
	}
	g.UpdatedAt = now
}

// saveGrow persiste el Grow completo y lo publica en la proyección tras el Commit.
func (e *Engine) saveGrow(ctx context.Context, op, actor string, g *entity.Grow) error {
	kg := growKind()
	return e.mutate(ctx, op, func(tx repository.Tables, st *txState) error {
		if err := saveRow(ctx, tx.Grows, g.ID, g); err != nil {
			return err
		}
		st.stage(func(p *projection) { putRow(p, kg, g) })
		st.emit(ChangeEvent{Op: OpUpdate, EntityType: entity.EntityGrow, ID: g.ID, RecordGroupID: g.GroupID(), ActorID: actor, At: g.UpdatedAt})
		return nil
	})
}

// AdvanceStage avanza el Grow a la siguiente etapa del orden fijo. Si el Grow no existe devuelve nil, nil;
// si está en una etapa terminal devuelve el Grow sin cambios.
func (e *Engine) AdvanceStage(ctx context.Context, growID string) (*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := liveRow(e, growKind(), actor, growID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	next, ok := cultivation.NextStage(current.CurrentStage)
	if !ok {
		return current.Clone(), nil
	}

	g := current.Clone()
	stampStage(g, next, e.now())
	if err := e.saveGrow(ctx, "advance_stage", actor, g); err != nil {
		return nil, err
	}
	e.log.Info().Str("id", g.ID).Str("from", current.CurrentStage).Str("to", next).Msg("etapa avanzada")
	return g.Clone(), nil
}

// MarkContaminated lleva el Grow a contaminated/failed desde cualquier etapa no terminal.
// Sobre un Grow ya contaminado no hace nada; completed y aborted no admiten la transición.
func (e *Engine) MarkContaminated(ctx context.Context, growID, notes string) (*entity.Grow, error) {
	return e.terminate(ctx, growID, entity.StageContaminated, notes)
}

// AbortGrow lleva el Grow a aborted desde cualquier etapa no terminal.
func (e *Engine) AbortGrow(ctx context.Context, growID, reason string) (*entity.Grow, error) {
	return e.terminate(ctx, growID, entity.StageAborted, reason)
}

func (e *Engine) terminate(ctx context.Context, growID, stage, notes string) (*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := liveRow(e, growKind(), actor, growID)
	if err != nil {
		return nil, err
	}
	if current.CurrentStage == stage {
		return current.Clone(), nil
	}
	if cultivation.IsTerminalStage(current.CurrentStage) {
		return nil, fmt.Errorf("%w: el Grow %s ya terminó en %s", domain.ErrValidation, growID, current.CurrentStage)
	}

	g := current.Clone()
	stampStage(g, stage, e.now())
	g.Notes = appendNote(g.Notes, notes)
	if err := e.saveGrow(ctx, "mark_"+stage, actor, g); err != nil {
		return nil, err
	}
	e.log.Info().Str("id", g.ID).Str("from", current.CurrentStage).Str("to", stage).Msg("Grow terminado")
	return g.Clone(), nil
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	}
	return existing + "\n" + note
}

// AddObservation agrega la observación y aplica las cascadas en orden: una observación de
// contaminación contamina el Grow; si no, un hito con señal de pinning durante la colonización
// salta directamente a fruiting.
func (e *Engine) AddObservation(ctx context.Context, growID string, in ObservationInput) (*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := liveRow(e, growKind(), actor, growID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	obs, err := e.newObservation(in, now)
	if err != nil {
		return nil, err
	}

	g := current.Clone()
	g.Observations = append(g.Observations, obs)
	g.UpdatedAt = now
	switch {
	case obs.Type == entity.ObservationContamination && !cultivation.IsTerminalStage(g.CurrentStage):
		stampStage(g, entity.StageContaminated, now)
	case obs.Type == entity.ObservationMilestone && g.CurrentStage == entity.StageColonization &&
		cultivation.IndicatesPinning(obs.Title, obs.Notes):
		stampStage(g, entity.StageFruiting, now)
	}

	if err := e.saveGrow(ctx, "add_observation", actor, g); err != nil {
		return nil, err
	}
	if g.CurrentStage != current.CurrentStage {
		e.log.Info().Str("id", g.ID).Str("from", current.CurrentStage).Str("to", g.CurrentStage).
			Str("observation_type", obs.Type).Msg("cascada por observación")
	}
	return g.Clone(), nil
}

// AddCultureObservation agrega la observación al cultivo; la salud indicada reemplaza la del cultivo
// y una observación de contaminación lo marca contaminated. Todo se persiste en una sola escritura.
func (e *Engine) AddCultureObservation(ctx context.Context, cultureID string, in ObservationInput) (*entity.Culture, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := liveRow(e, cultureKind(), actor, cultureID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	obs, err := e.newObservation(in, now)
	if err != nil {
		return nil, err
	}

	c := current.Clone()
	c.Observations = append(c.Observations, obs)
	if obs.HealthRating != nil {
		v := *obs.HealthRating
		c.HealthRating = &v
	}
	if obs.Type == entity.ObservationContamination {
		c.Status = entity.CultureStatusContaminated
	}
	c.UpdatedAt = now

	kc := cultureKind()
	err = e.mutate(ctx, "add_culture_observation", func(tx repository.Tables, st *txState) error {
		if err := saveRow(ctx, tx.Cultures, c.ID, c); err != nil {
			return err
		}
		st.stage(func(p *projection) { putRow(p, kc, c) })
		st.emit(ChangeEvent{Op: OpUpdate, EntityType: entity.EntityCulture, ID: c.ID, RecordGroupID: c.GroupID(), ActorID: actor, At: now})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// RecordFlush registra una cosecha con el siguiente número (1-based) y recalcula los costos por gramo.
func (e *Engine) RecordFlush(ctx context.Context, growID string, in FlushInput) (*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if in.WetWeight.IsNegative() || in.DryWeight.IsNegative() {
		return nil, fmt.Errorf("%w: los pesos no pueden ser negativos", domain.ErrInvalidInput)
	}
	if !in.WetWeight.IsPositive() && !in.DryWeight.IsPositive() {
		return nil, fmt.Errorf("%w: la cosecha necesita peso húmedo o seco", domain.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := liveRow(e, growKind(), actor, growID)
	if err != nil {
		return nil, err
	}
	switch current.CurrentStage {
	case entity.StageContaminated, entity.StageAborted:
		return nil, fmt.Errorf("%w: no se cosecha un Grow en %s", domain.ErrValidation, current.CurrentStage)
	}

	now := e.now()
	harvested := now
	if in.HarvestedAt != nil {
		harvested = in.HarvestedAt.UTC()
	}
	g := current.Clone()
	g.Flushes = append(g.Flushes, entity.Flush{
		ID:          e.newID(),
		FlushNumber: len(g.Flushes) + 1,
		HarvestedAt: harvested,
		WetWeight:   in.WetWeight,
		DryWeight:   in.DryWeight,
		Notes:       strings.TrimSpace(in.Notes),
	})
	g.UpdatedAt = now
	e.applyGrowCosts(g)

	if err := e.saveGrow(ctx, "record_flush", actor, g); err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// prepareGrowVersion valida la nueva versión de un Grow y recalcula sus costos derivados.
func (e *Engine) prepareGrowVersion(next, prev *entity.Grow) error {
	if strings.TrimSpace(next.Name) == "" {
		return fmt.Errorf("%w: el Grow necesita nombre", domain.ErrInvalidInput)
	}
	if next.SpawnWeight.IsNegative() || next.SubstrateWeight.IsNegative() {
		return fmt.Errorf("%w: los pesos no pueden ser negativos", domain.ErrInvalidInput)
	}
	if next.SourceCultureID != "" && (prev == nil || next.SourceCultureID != prev.SourceCultureID) {
		src := e.resolveCulture(next.SourceCultureID)
		if src == nil {
			return fmt.Errorf("%w: cultivo origen %s", domain.ErrNotFound, next.SourceCultureID)
		}
		if err := authorize(next.UserID, src.UserID); err != nil {
			return err
		}
	}
	e.applyGrowCosts(next)
	return nil
}

// preparePreparedSpawnVersion valida la nueva versión de un lote de spawn.
func (e *Engine) preparePreparedSpawnVersion(next, prev *entity.PreparedSpawn) error {
	if strings.TrimSpace(next.Name) == "" {
		return fmt.Errorf("%w: el spawn necesita nombre", domain.ErrInvalidInput)
	}
	if next.Weight.IsNegative() || next.Cost.IsNegative() {
		return fmt.Errorf("%w: peso y costo no pueden ser negativos", domain.ErrInvalidInput)
	}
	if next.SourceCultureID != "" && (prev == nil || next.SourceCultureID != prev.SourceCultureID) {
		if e.resolveCulture(next.SourceCultureID) == nil {
			return fmt.Errorf("%w: cultivo origen %s", domain.ErrNotFound, next.SourceCultureID)
		}
	}
	return nil
}
