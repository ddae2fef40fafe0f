package cultivation_test

import (
	"errors"
	"testing"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cultureChild(name, parentID string) cultivation.CultureInput {
	return cultivation.CultureInput{
		Name:         name,
		Type:         entity.CultureLiquidCulture,
		ParentID:     parentID,
		FillVolumeMl: dec("10"),
	}
}

func preparedSpawn(name string) cultivation.PreparedSpawnInput {
	return cultivation.PreparedSpawnInput{Name: name, SpawnType: "rye", Weight: dec("1000"), Cost: dec("6")}
}

// ─── Transfer ───────────────────────────────────────────────────────────────

func TestTransfer_ConservaElCostoHeredado(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")

	b, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{
		Quantity: dec("2"),
		Unit:     entity.UnitMl,
		ToType:   entity.CultureLiquidCulture,
	})
	require.NoError(t, err)
	require.NotNil(t, b)

	assertDec(t, "1", b.ParentCultureCost)
	assertDec(t, "2", b.FillVolumeMl)
	assertDec(t, "0.5", b.CostPerMl)
	assert.Equal(t, a.Generation+1, b.Generation)
	assert.Equal(t, a.ID, b.ParentID)
	assert.Equal(t, entity.CultureStatusColonizing, b.Status)
	assert.Equal(t, entity.CultureLiquidCulture, b.Type)
	assert.Equal(t, "A G1", b.Name)

	src, err := f.engine.CultureByID(f.ctx, a.ID)
	require.NoError(t, err)
	assertDec(t, "18", src.FillVolumeMl)
	assertDec(t, "2", src.VolumeUsed)
	assertDec(t, "0.5", src.CostPerMl)
	require.Len(t, src.Transfers, 1)
	assert.Equal(t, b.ID, src.Transfers[0].ToID)
	assertDec(t, "1", src.Transfers[0].TransferredCost)
	assert.Equal(t, 1, src.Version.Number, "un traspaso es una actualización de campos, no una enmienda")

	assert.Equal(t, 1, f.store.Count(repository.CollectionTransfers))
	stored, err := f.store.Tables().Cultures.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assertDec(t, "18", stored.FillVolumeMl)
}

func TestTransfer_Unidades(t *testing.T) {
	cases := []struct {
		name, qty, unit, volume string
	}{
		{"gotas", "10", entity.UnitDrop, "0.5"},
		{"cc", "3", entity.UnitCc, "3"},
		{"cuña", "1", entity.UnitWedge, "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.agar(t, "A")
			child, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{
				Quantity: dec(tc.qty), Unit: tc.unit, ToType: entity.CultureAgar,
			})
			require.NoError(t, err)
			assertDec(t, tc.volume, child.FillVolumeMl)
		})
	}
}

func TestTransfer_DestinoNoCultivoDevuelveNil(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")

	got, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{
		Quantity: dec("5"), Unit: entity.UnitMl, ToType: "grain_spawn", ToID: "jar-7",
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	src, err := f.engine.CultureByID(f.ctx, a.ID)
	require.NoError(t, err)
	assertDec(t, "15", src.FillVolumeMl)
	assert.Equal(t, "jar-7", src.Transfers[0].ToID)
	list, err := f.engine.ActiveCultures(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransfer_VolumenConPisoCero(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	_, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{Quantity: dec("30"), Unit: entity.UnitMl, ToType: "bag"})
	require.NoError(t, err)

	src, err := f.engine.CultureByID(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, src.FillVolumeMl.IsZero())
	assertDec(t, "30", src.VolumeUsed)
}

func TestTransfer_ACultivoExistente(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	lc, err := f.engine.CreateCulture(f.ctx, cultivation.CultureInput{
		Name: "LC", Type: entity.CultureLiquidCulture, FillVolumeMl: dec("100"), ProductionCost: dec("5"),
	})
	require.NoError(t, err)

	got, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{
		Quantity: dec("4"), Unit: entity.UnitMl, ToType: entity.CultureLiquidCulture, ToID: lc.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lc.ID, got.ID)
	assertDec(t, "104", got.FillVolumeMl)
	assertDec(t, "2", got.ParentCultureCost)
	assert.Equal(t, 0, got.Generation, "alimentar un cultivo existente no cambia su linaje")

	list, err := f.engine.ActiveCultures(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2, "no se crea un cultivo nuevo")

	_, err = f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{
		Quantity: dec("1"), Unit: entity.UnitMl, ToType: entity.CultureAgar, ToID: "missing",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_RollbackSiFallaElCultivoHijo(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	f.store.FailOn(repository.CollectionCultures, memory.OpInsert, errors.New("quota"))

	_, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{Quantity: dec("2"), Unit: entity.UnitMl, ToType: entity.CultureAgar})
	require.ErrorIs(t, err, domain.ErrPersistence)

	src, err := f.engine.CultureByID(f.ctx, a.ID)
	require.NoError(t, err)
	assertDec(t, "20", src.FillVolumeMl, "la proyección no refleja el descuento")
	assert.Empty(t, src.Transfers)

	stored, err := f.store.Tables().Cultures.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assertDec(t, "20", stored.FillVolumeMl, "el descuento del origen se revierte")
	assert.Equal(t, 0, f.store.Count(repository.CollectionTransfers))
}

func TestTransfer_Validaciones(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")

	_, err := f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{Quantity: dec("1"), Unit: "litre", ToType: entity.CultureAgar})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{Quantity: dec("0"), Unit: entity.UnitMl, ToType: entity.CultureAgar})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{Quantity: dec("1"), Unit: entity.UnitMl})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.Transfer(f.ctx, "nope", cultivation.TransferSpec{Quantity: dec("1"), Unit: entity.UnitMl, ToType: entity.CultureAgar})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.engine.Archive(f.ctx, entity.EntityCulture, a.ID, "viejo"))
	_, err = f.engine.Transfer(f.ctx, a.ID, cultivation.TransferSpec{Quantity: dec("1"), Unit: entity.UnitMl, ToType: entity.CultureAgar})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ─── Lineage ────────────────────────────────────────────────────────────────

func TestLineage_AncestrosYDescendientes(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	spec := cultivation.TransferSpec{Quantity: dec("1"), Unit: entity.UnitMl, ToType: entity.CultureAgar}
	b, err := f.engine.Transfer(f.ctx, a.ID, spec)
	require.NoError(t, err)
	c, err := f.engine.Transfer(f.ctx, b.ID, spec)
	require.NoError(t, err)
	d, err := f.engine.Transfer(f.ctx, a.ID, spec)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Generation)

	lin, err := f.engine.Lineage(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, lin.Ancestors, 2)
	assert.Equal(t, b.ID, lin.Ancestors[0].ID)
	assert.Equal(t, a.ID, lin.Ancestors[1].ID)
	assert.Empty(t, lin.Descendants)

	lin, err = f.engine.Lineage(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, lin.Ancestors)
	got := map[string]bool{}
	for _, x := range lin.Descendants {
		got[x.ID] = true
	}
	assert.Equal(t, map[string]bool{b.ID: true, c.ID: true, d.ID: true}, got)
}

func TestLineage_SigueAlPadreEnmendado(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	b, err := f.engine.CreateCulture(f.ctx, cultureChild("B", a.ID))
	require.NoError(t, err)

	a2, err := f.engine.AmendCulture(f.ctx, a.ID, func(c *entity.Culture) { c.Name = "A v2" }, entity.AmendmentCorrection, "nombre")
	require.NoError(t, err)

	lin, err := f.engine.Lineage(f.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, lin.Ancestors, 1)
	assert.Equal(t, a2.ID, lin.Ancestors[0].ID, "el padre se resuelve a la versión vigente de su grupo")

	lin, err = f.engine.Lineage(f.ctx, a2.ID)
	require.NoError(t, err)
	require.Len(t, lin.Descendants, 1)
	assert.Equal(t, b.ID, lin.Descendants[0].ID)
}

func TestLineage_PadreEliminadoCortaElRecorrido(t *testing.T) {
	f := newFixture(t)
	a := f.agar(t, "A")
	b, err := f.engine.CreateCulture(f.ctx, cultureChild("B", a.ID))
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteCulture(f.ctx, a.ID, nil))

	lin, err := f.engine.Lineage(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, lin.Ancestors)

	_, err = f.engine.Lineage(f.ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCulture_PadreInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateCulture(f.ctx, cultureChild("B", "missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.CreateCulture(f.ctx, cultivation.CultureInput{Name: "x", Type: "petri"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
