package cultivation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// LocalIDPrefix prefijo de los IDs de desenlace generados localmente cuando el almacén rechaza la escritura.
const LocalIDPrefix = "local-"

// OutcomeInput desenlace de un cultivo o Grow. Los campos vacíos se completan desde la entidad al eliminarla.
type OutcomeInput struct {
	EntityType    string
	EntityID      string
	EntityName    string
	Category      string
	Code          string
	Notes         string
	TotalCost     *decimal.Decimal
	TotalYieldWet *decimal.Decimal
	TotalYieldDry *decimal.Decimal
	StartedAt     *time.Time
	EndedAt       *time.Time
	Contamination *ContaminationInput
}

// ContaminationInput detalle de contaminación asociado 1:1 a un desenlace.
type ContaminationInput struct {
	Type           string
	SuspectedCause string
	Stage          string
	Notes          string
}

// durationDays días completos entre start y end; nunca negativo.
func durationDays(start, end time.Time) int {
	d := int(end.Sub(start).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// RecordOutcome persiste el desenlace. Nunca falla: si el almacén rechaza la escritura devuelve el
// desenlace con un ID local (LocalIDPrefix) y reporta el fallo por el canal lateral.
func (e *Engine) RecordOutcome(ctx context.Context, in OutcomeInput) *entity.EntityOutcome {
	now := e.now()
	end := now
	if in.EndedAt != nil {
		end = in.EndedAt.UTC()
	}
	category := in.Category
	if category == "" {
		category = entity.OutcomeNeutral
	}
	out := &entity.EntityOutcome{
		ID:              e.newID(),
		UserID:          ActorFromContext(ctx),
		EntityType:      in.EntityType,
		EntityID:        in.EntityID,
		EntityName:      in.EntityName,
		OutcomeCategory: category,
		OutcomeCode:     in.Code,
		Notes:           in.Notes,
		TotalCost:       in.TotalCost,
		TotalYieldWet:   in.TotalYieldWet,
		TotalYieldDry:   in.TotalYieldDry,
		EndedAt:         end,
		CreatedAt:       now,
	}
	if in.StartedAt != nil {
		start := in.StartedAt.UTC()
		days := durationDays(start, end)
		out.StartedAt = &start
		out.DurationDays = &days
	}

	var err error
	if out.UserID == "" {
		err = domain.ErrUnauthorized
	} else {
		err = e.store.Tables().Outcomes.Insert(ctx, out.ID, out)
	}
	if err != nil {
		out.ID = LocalIDPrefix + uuid.NewString()
		e.reportFailure(ctx, "record_outcome", in.EntityType, in.EntityID, err)
		return out
	}
	e.log.Info().Str("entity_type", out.EntityType).Str("entity_id", out.EntityID).
		Str("category", out.OutcomeCategory).Msg("desenlace registrado")
	return out
}

// AuthorizeOutcomeTarget comprueba que la entidad a la que se asocia un desenlace sea del actor.
// entityID puede ser cualquier versión o el record_group_id. Una entidad que ya no existe (eliminada)
// no se puede verificar y se acepta.
func (e *Engine) AuthorizeOutcomeTarget(ctx context.Context, entityType, entityID string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	e.view.RLock()
	defer e.view.RUnlock()
	var owner string
	var found bool
	switch entityType {
	case entity.EntityCulture:
		owner, found = ownerOf(e.proj, cultureKind(), entityID)
	case entity.EntityGrow:
		owner, found = ownerOf(e.proj, growKind(), entityID)
	case entity.EntityPreparedSpawn:
		owner, found = ownerOf(e.proj, preparedSpawnKind(), entityID)
	}
	if !found {
		return nil
	}
	return authorize(actor, owner)
}

// ownerOf dueño de la versión id o del grupo id. Debe llamarse con view tomado.
func ownerOf[T any, P record[T]](p *projection, k kind[T, P], id string) (string, bool) {
	rows := k.rows(p)
	if row := rows[id]; row != nil {
		return P(row).Meta().UserID, true
	}
	if h, ok := p.heads[k.entityType][id]; ok {
		if row := rows[h.id]; row != nil {
			return P(row).Meta().UserID, true
		}
	}
	return "", false
}

// RecordContaminationDetails persiste el detalle de contaminación del desenlace outcomeID.
// Los fallos solo se reportan por el canal lateral.
func (e *Engine) RecordContaminationDetails(ctx context.Context, outcomeID string, in ContaminationInput) *entity.ContaminationDetails {
	d := &entity.ContaminationDetails{
		ID:                e.newID(),
		UserID:            ActorFromContext(ctx),
		OutcomeID:         outcomeID,
		ContaminationType: strings.TrimSpace(in.Type),
		SuspectedCause:    in.SuspectedCause,
		Stage:             in.Stage,
		Notes:             in.Notes,
		CreatedAt:         e.now(),
	}
	var err error
	switch {
	case d.UserID == "":
		err = domain.ErrUnauthorized
	case strings.HasPrefix(outcomeID, LocalIDPrefix):
		err = fmt.Errorf("%w: el desenlace %s no se persistió", domain.ErrPersistence, outcomeID)
	default:
		err = e.store.Tables().Contamination.Insert(ctx, d.ID, d)
	}
	if err != nil {
		e.reportFailure(ctx, "record_contamination_details", "", outcomeID, err)
	}
	return d
}

func (e *Engine) recordDeletionOutcome(ctx context.Context, in *OutcomeInput, defaults OutcomeInput) {
	if in == nil {
		return
	}
	o := *in
	o.EntityType = defaults.EntityType
	o.EntityID = defaults.EntityID
	if o.EntityName == "" {
		o.EntityName = defaults.EntityName
	}
	if o.TotalCost == nil {
		o.TotalCost = defaults.TotalCost
	}
	if o.TotalYieldWet == nil {
		o.TotalYieldWet = defaults.TotalYieldWet
	}
	if o.TotalYieldDry == nil {
		o.TotalYieldDry = defaults.TotalYieldDry
	}
	if o.StartedAt == nil {
		o.StartedAt = defaults.StartedAt
	}
	outcome := e.RecordOutcome(ctx, o)
	if o.Contamination != nil {
		e.RecordContaminationDetails(ctx, outcome.ID, *o.Contamination)
	}
}

// DeleteCulture registra el desenlace (si se indica) y después elimina todas las versiones del cultivo.
func (e *Engine) DeleteCulture(ctx context.Context, id string, outcome *OutcomeInput) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	k := cultureKind()
	c := headRow(e.proj, k, id)
	if c == nil {
		return fmt.Errorf("%w: cultivo %s", domain.ErrNotFound, id)
	}
	if err := authorize(actor, c.UserID); err != nil {
		return err
	}
	versions := groupRows(e.proj, k, c.GroupID())
	total := cultivation.CultureTotalCost(c)
	started := versions[0].CreatedAt
	e.recordDeletionOutcome(ctx, outcome, OutcomeInput{
		EntityType: entity.EntityCulture,
		EntityID:   c.GroupID(),
		EntityName: c.Name,
		TotalCost:  &total,
		StartedAt:  &started,
	})
	return deleteGroup(ctx, e, k, actor, c.GroupID())
}

// DeleteGrow registra el desenlace (si se indica) y después elimina todas las versiones del Grow.
func (e *Engine) DeleteGrow(ctx context.Context, id string, outcome *OutcomeInput) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	k := growKind()
	g := headRow(e.proj, k, id)
	if g == nil {
		return fmt.Errorf("%w: grow %s", domain.ErrNotFound, id)
	}
	if err := authorize(actor, g.UserID); err != nil {
		return err
	}
	total := g.TotalCost
	wet, dry := g.TotalWetWeight(), g.TotalDryWeight()
	started := g.SpawnedAt
	e.recordDeletionOutcome(ctx, outcome, OutcomeInput{
		EntityType:    entity.EntityGrow,
		EntityID:      g.GroupID(),
		EntityName:    g.Name,
		TotalCost:     &total,
		TotalYieldWet: &wet,
		TotalYieldDry: &dry,
		StartedAt:     &started,
	})
	return deleteGroup(ctx, e, k, actor, g.GroupID())
}

func deleteGroup[T any, P record[T]](ctx context.Context, e *Engine, k kind[T, P], actor, groupID string) error {
	now := e.now()
	err := e.mutate(ctx, "delete_"+k.entityType, func(tx repository.Tables, st *txState) error {
		table := k.table(tx)
		rows, err := table.Select(ctx, repository.Filter{"record_group_id": groupID})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := table.Delete(ctx, P(row).Meta().ID); err != nil {
				return err
			}
		}
		st.stage(func(p *projection) { removeGroup(p, k, groupID) })
		st.emit(ChangeEvent{Op: OpDelete, EntityType: k.entityType, ID: groupID, RecordGroupID: groupID, ActorID: actor, At: now})
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Info().Str("entity_type", k.entityType).Str("record_group_id", groupID).Msg("registro eliminado")
	return nil
}

// Outcomes desenlaces del actor, del más reciente al más antiguo. Se leen del almacén: no forman parte de la proyección.
func (e *Engine) Outcomes(ctx context.Context) ([]*entity.EntityOutcome, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Tables().Outcomes.Select(ctx, repository.Filter{"user_id": actor}, repository.Desc("ended_at"))
	if err != nil {
		return nil, fmt.Errorf("%w: listar desenlaces: %v", domain.ErrPersistence, err)
	}
	return rows, nil
}
