package cultivation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
)

// ArchiveCounts registros efectivamente archivados por tipo (no los solicitados).
type ArchiveCounts struct {
	CulturesArchived      int `json:"cultures_archived"`
	GrowsArchived         int `json:"grows_archived"`
	PreparedSpawnArchived int `json:"prepared_spawn_archived"`
}

// Total suma de los tres tipos.
func (c ArchiveCounts) Total() int {
	return c.CulturesArchived + c.GrowsArchived + c.PreparedSpawnArchived
}

// AmendCulture crea una nueva versión del cultivo originalID aplicando changes.
func (e *Engine) AmendCulture(ctx context.Context, originalID string, changes func(*entity.Culture), amendmentType, reason string) (*entity.Culture, error) {
	return amend(ctx, e, cultureKind(), originalID, changes, amendmentType, reason)
}

// AmendGrow crea una nueva versión del Grow originalID aplicando changes.
func (e *Engine) AmendGrow(ctx context.Context, originalID string, changes func(*entity.Grow), amendmentType, reason string) (*entity.Grow, error) {
	return amend(ctx, e, growKind(), originalID, changes, amendmentType, reason)
}

// AmendPreparedSpawn crea una nueva versión del lote de spawn originalID aplicando changes.
func (e *Engine) AmendPreparedSpawn(ctx context.Context, originalID string, changes func(*entity.PreparedSpawn), amendmentType, reason string) (*entity.PreparedSpawn, error) {
	return amend(ctx, e, preparedSpawnKind(), originalID, changes, amendmentType, reason)
}

func validAmendmentType(t string) bool {
	switch t {
	case entity.AmendmentCorrection, entity.AmendmentUpdate, entity.AmendmentReclassification:
		return true
	}
	return false
}

// amend: la versión original se marca reemplazada y la nueva se inserta en la misma transacción.
// La entrada de auditoría se escribe después del Commit; si falla se reporta por el canal lateral.
func amend[T any, P record[T]](ctx context.Context, e *Engine, k kind[T, P], originalID string, changes func(*T), amendmentType, reason string) (*T, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if amendmentType == "" {
		amendmentType = entity.AmendmentCorrection
	}
	if !validAmendmentType(amendmentType) {
		return nil, fmt.Errorf("%w: tipo de enmienda %q", domain.ErrInvalidInput, amendmentType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	orig := k.rows(e.proj)[originalID]
	if orig == nil {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, k.entityType, originalID)
	}
	om := P(orig).Meta()
	if err := authorize(actor, om.UserID); err != nil {
		return nil, err
	}
	if om.IsArchived {
		return nil, fmt.Errorf("%w: el grupo %s está archivado", domain.ErrValidation, om.GroupID())
	}
	if !om.IsCurrent {
		return nil, fmt.Errorf("%w: %s %s no es la versión vigente", domain.ErrNotFound, k.entityType, originalID)
	}

	now := e.now()
	newID := e.newID()

	next := P(orig).Clone()
	if changes != nil {
		changes(next)
	}
	nm := P(next).Meta()
	*nm = entity.Version{
		ID:              newID,
		UserID:          om.UserID,
		RecordGroupID:   om.GroupID(),
		Number:          om.Number + 1,
		IsCurrent:       true,
		ValidFrom:       now,
		AmendmentType:   amendmentType,
		AmendmentReason: reason,
		AmendsRecordID:  om.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if k.prepare != nil {
		if err := k.prepare(e, next, orig); err != nil {
			return nil, err
		}
	}

	superseded := P(orig).Clone()
	sm := P(superseded).Meta()
	sm.IsCurrent = false
	sm.ValidTo = &now
	sm.SupersededByID = newID
	sm.UpdatedAt = now
	if sm.RecordGroupID == "" {
		sm.RecordGroupID = om.GroupID()
	}

	err = e.mutate(ctx, "amend_"+k.entityType, func(tx repository.Tables, st *txState) error {
		table := k.table(tx)
		if err := table.Update(ctx, om.ID, repository.Patch{
			"record_group_id":  sm.RecordGroupID,
			"is_current":       false,
			"valid_to":         now,
			"superseded_by_id": newID,
			"updated_at":       now,
		}); err != nil {
			return err
		}
		if err := table.Insert(ctx, newID, next); err != nil {
			return err
		}
		st.stage(func(p *projection) {
			putRow(p, k, superseded)
			putRow(p, k, next)
		})
		st.emit(ChangeEvent{Op: OpAmend, EntityType: k.entityType, ID: newID, RecordGroupID: nm.RecordGroupID, ActorID: actor, At: now})
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, &entity.DataAmendmentLogEntry{
		ID:               e.newID(),
		UserID:           om.UserID,
		EntityType:       k.entityType,
		RecordGroupID:    nm.RecordGroupID,
		OriginalRecordID: om.ID,
		NewRecordID:      newID,
		AmendmentType:    amendmentType,
		Reason:           reason,
		ActorID:          actor,
		CreatedAt:        now,
	})
	e.log.Info().Str("entity_type", k.entityType).Str("id", newID).Str("record_group_id", nm.RecordGroupID).
		Int("version", nm.Number).Msg("registro enmendado")
	return P(next).Clone(), nil
}

// Archive archiva el registro id de entityType. Es idempotente: si ya está archivado (en la proyección
// o, vía la condición is_archived=false, en el almacén) no hace nada ni escribe auditoría.
func (e *Engine) Archive(ctx context.Context, entityType, id, reason string) error {
	switch entityType {
	case entity.EntityCulture:
		return archive(ctx, e, cultureKind(), id, reason)
	case entity.EntityGrow:
		return archive(ctx, e, growKind(), id, reason)
	case entity.EntityPreparedSpawn:
		return archive(ctx, e, preparedSpawnKind(), id, reason)
	}
	return fmt.Errorf("%w: tipo de entidad %q", domain.ErrInvalidInput, entityType)
}

func archivePatch(actor, reason string, now time.Time) repository.Patch {
	return repository.Patch{
		"is_archived":    true,
		"archived_at":    now,
		"archived_by":    actor,
		"archive_reason": reason,
		"is_current":     false,
		"valid_to":       now,
		"updated_at":     now,
	}
}

func markArchived(v *entity.Version, actor, reason string, now time.Time) {
	v.IsArchived = true
	v.ArchivedAt = &now
	v.ArchivedBy = actor
	v.ArchiveReason = reason
	v.IsCurrent = false
	v.ValidTo = &now
	v.UpdatedAt = now
}

var notArchived = repository.Filter{"is_archived": false}

func archive[T any, P record[T]](ctx context.Context, e *Engine, k kind[T, P], id, reason string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: el motivo de archivado es obligatorio", domain.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	row := k.rows(e.proj)[id]
	if row == nil {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, k.entityType, id)
	}
	meta := P(row).Meta()
	if err := authorize(actor, meta.UserID); err != nil {
		return err
	}
	if meta.IsArchived {
		return nil
	}
	if !meta.IsCurrent {
		return fmt.Errorf("%w: %s %s fue reemplazado por %s", domain.ErrValidation, k.entityType, id, meta.SupersededByID)
	}

	now := e.now()
	archived := P(row).Clone()
	markArchived(P(archived).Meta(), actor, reason, now)

	transitioned := false
	err = e.mutate(ctx, "archive_"+k.entityType, func(tx repository.Tables, st *txState) error {
		table := k.table(tx)
		n, err := table.ConditionalUpdate(ctx, id, archivePatch(actor, reason, now), notArchived)
		if err != nil {
			return err
		}
		if n == 0 {
			// otra instancia lo archivó primero: sincronizar la proyección con el almacén
			stored, err := table.Get(ctx, id)
			if err != nil {
				return err
			}
			if stored != nil {
				st.stage(func(p *projection) { putRow(p, k, stored) })
			}
			return nil
		}
		transitioned = true
		st.stage(func(p *projection) { putRow(p, k, archived) })
		st.emit(ChangeEvent{Op: OpArchive, EntityType: k.entityType, ID: id, RecordGroupID: meta.GroupID(), ActorID: actor, At: now})
		return nil
	})
	if err != nil || !transitioned {
		return err
	}

	e.audit(ctx, archiveEntry(e.newID(), k.entityType, meta, actor, reason, now))
	e.log.Info().Str("entity_type", k.entityType).Str("id", id).Str("record_group_id", meta.GroupID()).Msg("registro archivado")
	return nil
}

func archiveEntry(id, entityType string, meta *entity.Version, actor, reason string, now time.Time) *entity.DataAmendmentLogEntry {
	return &entity.DataAmendmentLogEntry{
		ID:               id,
		UserID:           meta.UserID,
		EntityType:       entityType,
		RecordGroupID:    meta.GroupID(),
		OriginalRecordID: meta.ID,
		AmendmentType:    entity.AmendmentArchive,
		Reason:           reason,
		ActorID:          actor,
		CreatedAt:        now,
	}
}

// ArchiveAll archiva todos los registros vigentes del actor, una transacción por tipo
// (cultivos, Grow, spawn preparado). Si un lote falla devuelve los conteos de los tipos ya confirmados.
func (e *Engine) ArchiveAll(ctx context.Context, reason string) (ArchiveCounts, error) {
	var counts ArchiveCounts
	actor, err := requireActor(ctx)
	if err != nil {
		return counts, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return counts, fmt.Errorf("%w: el motivo de archivado es obligatorio", domain.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if counts.CulturesArchived, err = archiveBatch(ctx, e, cultureKind(), actor, reason); err != nil {
		return counts, err
	}
	if counts.GrowsArchived, err = archiveBatch(ctx, e, growKind(), actor, reason); err != nil {
		return counts, err
	}
	if counts.PreparedSpawnArchived, err = archiveBatch(ctx, e, preparedSpawnKind(), actor, reason); err != nil {
		return counts, err
	}
	e.log.Info().Str("actor_id", actor).Int("cultures", counts.CulturesArchived).Int("grows", counts.GrowsArchived).
		Int("prepared_spawn", counts.PreparedSpawnArchived).Msg("archivado masivo")
	return counts, nil
}

func archiveBatch[T any, P record[T]](ctx context.Context, e *Engine, k kind[T, P], actor, reason string) (int, error) {
	now := e.now()
	var done []*T
	err := e.mutate(ctx, "archive_all_"+k.entityType, func(tx repository.Tables, st *txState) error {
		done = nil
		table := k.table(tx)
		rows, err := table.Select(ctx, repository.Filter{"user_id": actor, "is_current": true, "is_archived": false})
		if err != nil {
			return err
		}
		for _, row := range rows {
			meta := P(row).Meta()
			n, err := table.ConditionalUpdate(ctx, meta.ID, archivePatch(actor, reason, now), notArchived)
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			markArchived(meta, actor, reason, now)
			done = append(done, row)
		}
		archived := done
		st.stage(func(p *projection) {
			for _, row := range archived {
				putRow(p, k, row)
			}
		})
		for _, row := range archived {
			meta := P(row).Meta()
			st.emit(ChangeEvent{Op: OpArchive, EntityType: k.entityType, ID: meta.ID, RecordGroupID: meta.GroupID(), ActorID: actor, At: now})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, row := range done {
		e.audit(ctx, archiveEntry(e.newID(), k.entityType, P(row).Meta(), actor, reason, now))
	}
	return len(done), nil
}

// History resumen de todas las versiones del grupo, por número de versión ascendente.
func (e *Engine) History(ctx context.Context, entityType, recordGroupID string) ([]entity.VersionSummary, error) {
	switch entityType {
	case entity.EntityCulture:
		return history(ctx, e, cultureKind(), recordGroupID)
	case entity.EntityGrow:
		return history(ctx, e, growKind(), recordGroupID)
	case entity.EntityPreparedSpawn:
		return history(ctx, e, preparedSpawnKind(), recordGroupID)
	}
	return nil, fmt.Errorf("%w: tipo de entidad %q", domain.ErrInvalidInput, entityType)
}

func history[T any, P record[T]](ctx context.Context, e *Engine, k kind[T, P], groupID string) ([]entity.VersionSummary, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := k.table(e.store.Tables()).Select(ctx, repository.Filter{"record_group_id": groupID}, repository.Asc("version"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: grupo %s", domain.ErrNotFound, groupID)
	}
	if err := authorize(actor, P(rows[0]).Meta().UserID); err != nil {
		return nil, err
	}
	out := make([]entity.VersionSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, P(row).Meta().Summary())
	}
	return out, nil
}

// AuditLog entradas de auditoría del grupo, de la más reciente a la más antigua.
func (e *Engine) AuditLog(ctx context.Context, recordGroupID string) ([]*entity.DataAmendmentLogEntry, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return e.store.Tables().AmendmentLog.Select(ctx,
		repository.Filter{"record_group_id": recordGroupID, "user_id": actor},
		repository.Desc("created_at"),
	)
}

func (e *Engine) audit(ctx context.Context, entry *entity.DataAmendmentLogEntry) {
	if err := e.store.Tables().AmendmentLog.Insert(ctx, entry.ID, entry); err != nil {
		e.reportFailure(ctx, "audit", entry.EntityType, entry.OriginalRecordID, err)
	}
}
