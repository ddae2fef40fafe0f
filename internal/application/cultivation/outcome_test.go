package cultivation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── RecordOutcome ──────────────────────────────────────────────────────────

func TestRecordOutcome_DuracionEnDiasCompletos(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)

	out := f.engine.RecordOutcome(f.ctx, cultivation.OutcomeInput{
		EntityType: entity.EntityGrow, EntityID: "g1", Code: "harvested", Category: entity.OutcomeSuccess,
		StartedAt: &start, EndedAt: &end,
	})
	require.NotNil(t, out.DurationDays)
	assert.Equal(t, 9, *out.DurationDays)
	assert.Equal(t, userID, out.UserID)
	assert.Equal(t, 1, f.store.Count(repository.CollectionOutcomes))

	before := end.Add(-48 * time.Hour)
	out = f.engine.RecordOutcome(f.ctx, cultivation.OutcomeInput{EntityType: entity.EntityGrow, EntityID: "g2", StartedAt: &end, EndedAt: &before})
	assert.Equal(t, 0, *out.DurationDays, "nunca negativa")
	assert.Equal(t, entity.OutcomeNeutral, out.OutcomeCategory)
}

func TestRecordOutcome_FalloDevuelveIDLocal(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn(repository.CollectionOutcomes, memory.OpInsert, errors.New("timeout"))

	out := f.engine.RecordOutcome(f.ctx, cultivation.OutcomeInput{EntityType: entity.EntityCulture, EntityID: "c1", Code: "expired"})
	require.NotNil(t, out)
	assert.True(t, strings.HasPrefix(out.ID, cultivation.LocalIDPrefix))
	assert.Equal(t, 0, f.store.Count(repository.CollectionOutcomes))
	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, "record_outcome", f.notifier.failures[0].Op)
	assert.Equal(t, "c1", f.notifier.failures[0].ID)

	d := f.engine.RecordContaminationDetails(f.ctx, out.ID, cultivation.ContaminationInput{Type: "bacterial"})
	assert.Equal(t, out.ID, d.OutcomeID)
	assert.Equal(t, 0, f.store.Count(repository.CollectionContamination), "un desenlace local no admite detalle persistido")
	assert.Len(t, f.notifier.failures, 2)
}

func TestRecordOutcome_SinActorVaAlCanalLateral(t *testing.T) {
	f := newFixture(t)
	out := f.engine.RecordOutcome(context.Background(), cultivation.OutcomeInput{EntityType: entity.EntityGrow, EntityID: "g1"})
	assert.True(t, strings.HasPrefix(out.ID, cultivation.LocalIDPrefix))
	assert.Len(t, f.notifier.failures, 1)
}

func TestAuthorizeOutcomeTarget_SoloElDueno(t *testing.T) {
	f := newFixture(t)
	g := f.grow(t, "G", "")
	other := cultivation.WithActor(context.Background(), "user-2")

	assert.NoError(t, f.engine.AuthorizeOutcomeTarget(f.ctx, entity.EntityGrow, g.ID))
	assert.NoError(t, f.engine.AuthorizeOutcomeTarget(f.ctx, entity.EntityGrow, g.GroupID()), "por record_group_id")
	assert.ErrorIs(t, f.engine.AuthorizeOutcomeTarget(other, entity.EntityGrow, g.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.engine.AuthorizeOutcomeTarget(other, entity.EntityGrow, g.GroupID()), domain.ErrForbidden)
	assert.NoError(t, f.engine.AuthorizeOutcomeTarget(other, entity.EntityGrow, "eliminado"), "una entidad inexistente no se puede verificar")
	assert.ErrorIs(t, f.engine.AuthorizeOutcomeTarget(context.Background(), entity.EntityGrow, g.ID), domain.ErrUnauthorized)
}

// ─── Delete ─────────────────────────────────────────────────────────────────

func TestDeleteGrow_RegistraDesenlaceYBorraTodasLasVersiones(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	g := f.grow(t, "G", a.ID)
	_, err := f.engine.RecordFlush(f.ctx, g.ID, cultivation.FlushInput{WetWeight: dec("40"), DryWeight: dec("4")})
	require.NoError(t, err)
	g2, err := f.engine.AmendGrow(f.ctx, g.ID, func(x *entity.Grow) { x.Name = "G bis" }, entity.AmendmentCorrection, "nombre")
	require.NoError(t, err)
	require.Equal(t, 2, f.store.Count(repository.CollectionGrows))

	err = f.engine.DeleteGrow(f.ctx, g2.ID, &cultivation.OutcomeInput{
		Category: entity.OutcomeContamination,
		Code:     "trich",
		Contamination: &cultivation.ContaminationInput{
			Type: "trichoderma", SuspectedCause: "sustrato", Stage: entity.StageColonization,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.Count(repository.CollectionGrows))

	outcomes, err := f.store.Tables().Outcomes.Select(f.ctx, repository.Filter{"entity_id": g.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	o := outcomes[0]
	assert.Equal(t, entity.EntityGrow, o.EntityType)
	assert.Equal(t, "G bis", o.EntityName)
	require.NotNil(t, o.TotalCost)
	assertDec(t, "2.5", *o.TotalCost)
	require.NotNil(t, o.TotalYieldWet)
	assertDec(t, "40", *o.TotalYieldWet)
	assertDec(t, "4", *o.TotalYieldDry)
	require.NotNil(t, o.StartedAt)

	details, err := f.store.Tables().Contamination.Select(f.ctx, repository.Filter{"outcome_id": o.ID})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "trichoderma", details[0].ContaminationType)

	_, err = f.engine.GrowByID(f.ctx, g.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.History(f.ctx, entity.EntityGrow, g.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCulture_SinDesenlace(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	require.NoError(t, f.engine.DeleteCulture(f.ctx, a.ID, nil))
	assert.Equal(t, 0, f.store.Count(repository.CollectionCultures))
	assert.Equal(t, 0, f.store.Count(repository.CollectionOutcomes))

	list, err := f.engine.ActiveCultures(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, f.engine.DeleteCulture(f.ctx, a.ID, nil), domain.ErrNotFound)
}

func TestDeleteCulture_FalloDelBorradoConservaElDesenlace(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	f.store.FailOn(repository.CollectionCultures, memory.OpDelete, errors.New("lock"))

	err := f.engine.DeleteCulture(f.ctx, a.ID, &cultivation.OutcomeInput{Category: entity.OutcomeFailure, Code: "dried_out"})
	require.ErrorIs(t, err, domain.ErrPersistence)

	assert.Equal(t, 1, f.store.Count(repository.CollectionCultures))
	assert.Equal(t, 1, f.store.Count(repository.CollectionOutcomes), "el desenlace se registra antes del borrado")
	got, err := f.engine.CultureByID(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestDelete_OtroUsuario(t *testing.T) {
	f := newFixture(t)
	g := f.grow(t, "G", "")
	other := cultivation.WithActor(context.Background(), "user-2")
	assert.ErrorIs(t, f.engine.DeleteGrow(other, g.ID, nil), domain.ErrForbidden)
	assert.Equal(t, 1, f.store.Count(repository.CollectionGrows))
}
