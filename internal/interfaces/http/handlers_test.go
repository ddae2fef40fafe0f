package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/application/dto"
	domaincultivation "github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/memory"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/cultivo-lab/internal/interfaces/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
	auth  string
}

// newAPI levanta el router completo sobre el almacén en memoria.
func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	engine := cultivation.New(store, cultivation.WithMetrics(rec))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Engine: engine, JWTSecret: testJWTSecret, Gatherer: reg})
	return &apiFixture{t: t, app: app, store: store, auth: bearer(t, testUserID)}
}

// do lanza la petición con el token del usuario por defecto; body nil envía el request sin cuerpo.
func (f *apiFixture) do(method, path string, body any) *http.Response {
	return f.doAs(f.auth, method, path, body)
}

func (f *apiFixture) doAs(auth, method, path string, body any) *http.Response {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[dto.ErrorResponse](t, resp).Code
}

func (f *apiFixture) createAgar() entity.Culture {
	f.t.Helper()
	resp := f.do(http.MethodPost, "/api/cultures", dto.CreateCultureRequest{
		Name:         "Agar GT",
		Type:         entity.CultureAgar,
		FillVolumeMl: decimal.NewFromInt(20),
		PurchaseCost: decimal.NewFromInt(10),
	})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	return decode[entity.Culture](f.t, resp)
}

func (f *apiFixture) createGrow(name string) entity.Grow {
	f.t.Helper()
	resp := f.do(http.MethodPost, "/api/grows", dto.CreateGrowRequest{Name: name, SpawnWeight: decimal.NewFromInt(500)})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	return decode[entity.Grow](f.t, resp)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cultivos
// ──────────────────────────────────────────────────────────────────────────────

func TestCultures_TraspasoYLinaje(t *testing.T) {
	f := newAPI(t)
	agar := f.createAgar()

	resp := f.do(http.MethodPost, "/api/cultures/"+agar.ID+"/transfers", dto.TransferRequest{
		Quantity: decimal.NewFromInt(5),
		Unit:     entity.UnitMl,
		ToType:   entity.CultureLiquidCulture,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	child := decode[entity.Culture](t, resp)
	assert.Equal(t, 1, child.Generation)
	assert.True(t, decimal.RequireFromString("2.5").Equal(child.ParentCultureCost), "hereda 5 ml × 0.5")

	resp = f.do(http.MethodGet, "/api/cultures/"+child.ID+"/lineage", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lineage := decode[domaincultivation.Lineage](t, resp)
	require.Len(t, lineage.Ancestors, 1)
	assert.Equal(t, agar.RecordGroupID, lineage.Ancestors[0].RecordGroupID)

	resp = f.do(http.MethodGet, "/api/cultures", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.ListResponse[entity.Culture]](t, resp)
	assert.Equal(t, 2, list.Total)
}

func TestCultures_TraspasoANoCultivoDevuelve204(t *testing.T) {
	f := newAPI(t)
	agar := f.createAgar()

	resp := f.do(http.MethodPost, "/api/cultures/"+agar.ID+"/transfers", dto.TransferRequest{
		Quantity: decimal.NewFromInt(2),
		Unit:     entity.UnitMl,
		ToType:   "grain_spawn",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCultures_EnmiendaParcial(t *testing.T) {
	f := newAPI(t)
	agar := f.createAgar()
	name := "Agar GT renombrado"

	resp := f.do(http.MethodPut, "/api/cultures/"+agar.ID, dto.AmendCultureRequest{
		AmendmentMeta: dto.AmendmentMeta{AmendmentType: entity.AmendmentUpdate, Reason: "nombre"},
		Name:          &name,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v2 := decode[entity.Culture](t, resp)
	assert.Equal(t, name, v2.Name)
	assert.Equal(t, 2, v2.Version.Number)
	assert.Equal(t, entity.CultureAgar, v2.Type, "los campos ausentes se conservan")

	// La versión reemplazada ya no admite enmiendas.
	resp = f.do(http.MethodPut, "/api/cultures/"+agar.ID, dto.AmendCultureRequest{Name: &name})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(http.MethodGet, "/api/records/culture/"+agar.RecordGroupID+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[dto.ListResponse[entity.VersionSummary]](t, resp)
	assert.Equal(t, 2, history.Total)

	resp = f.do(http.MethodGet, "/api/records/"+agar.RecordGroupID+"/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audit := decode[dto.ListResponse[entity.DataAmendmentLogEntry]](t, resp)
	assert.Equal(t, 1, audit.Total)
}

func TestCultures_OtroUsuarioRecibe403(t *testing.T) {
	f := newAPI(t)
	agar := f.createAgar()

	resp := f.doAs(bearer(t, "otro-usuario"), http.MethodGet, "/api/cultures/"+agar.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))
}

func TestCultures_EntradaInvalidaRecibe400(t *testing.T) {
	f := newAPI(t)

	resp := f.do(http.MethodPost, "/api/cultures", dto.CreateCultureRequest{Type: entity.CultureAgar})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, resp))
}

func TestCultures_FalloDelAlmacenRecibe502(t *testing.T) {
	f := newAPI(t)
	f.store.FailOn(repository.CollectionCultures, memory.OpInsert, errors.New("conexión perdida"))

	resp := f.do(http.MethodPost, "/api/cultures", dto.CreateCultureRequest{
		Name:         "Agar",
		Type:         entity.CultureAgar,
		FillVolumeMl: decimal.NewFromInt(20),
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "PERSISTENCE", errorCode(t, resp))
}

func TestRoutes_SinTokenRecibe401(t *testing.T) {
	f := newAPI(t)
	resp := f.doAs("", http.MethodGet, "/api/cultures", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Grows
// ──────────────────────────────────────────────────────────────────────────────

func TestGrows_EtapasYCosecha(t *testing.T) {
	f := newAPI(t)
	g := f.createGrow("Bandeja 1")
	assert.Equal(t, entity.StageSpawning, g.CurrentStage)

	resp := f.do(http.MethodPost, "/api/grows/"+g.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g = decode[entity.Grow](t, resp)
	assert.Equal(t, entity.StageColonization, g.CurrentStage)

	resp = f.do(http.MethodPost, "/api/grows/"+g.ID+"/observations", dto.ObservationRequest{
		Type:  entity.ObservationGrowth,
		Title: "Primeros pins",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	g = decode[entity.Grow](t, resp)
	assert.Equal(t, entity.StageFruiting, g.CurrentStage, "pinning durante colonización pasa a fructificación")

	resp = f.do(http.MethodPost, "/api/grows/"+g.ID+"/flushes", dto.FlushRequest{WetWeight: decimal.NewFromInt(125)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	g = decode[entity.Grow](t, resp)
	require.Len(t, g.Flushes, 1)
	assert.Equal(t, 1, g.Flushes[0].FlushNumber)
}

func TestGrows_AvanzarInexistenteRecibe404(t *testing.T) {
	f := newAPI(t)
	resp := f.do(http.MethodPost, "/api/grows/no-existe/advance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGrows_AbortarTerminadoRecibe409(t *testing.T) {
	f := newAPI(t)
	g := f.createGrow("Bandeja 2")

	resp := f.do(http.MethodPost, "/api/grows/"+g.ID+"/abort", dto.NotesRequest{Notes: "sin espacio"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	aborted := decode[entity.Grow](t, resp)
	assert.Equal(t, entity.StageAborted, aborted.CurrentStage)

	resp = f.do(http.MethodPost, "/api/grows/"+aborted.ID+"/contaminate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", errorCode(t, resp))
}

func TestGrows_EliminarRegistraDesenlace(t *testing.T) {
	f := newAPI(t)
	g := f.createGrow("Bandeja 3")

	resp := f.do(http.MethodDelete, "/api/grows/"+g.ID, dto.OutcomeRequest{
		Category:      entity.OutcomeContamination,
		Code:          "trich",
		Contamination: &dto.ContaminationRequest{Type: "trichoderma"},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, f.store.Count(repository.CollectionGrows))
	assert.Equal(t, 1, f.store.Count(repository.CollectionContamination))

	resp = f.do(http.MethodGet, "/api/outcomes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outcomes := decode[dto.ListResponse[entity.EntityOutcome]](t, resp)
	require.Equal(t, 1, outcomes.Total)
	assert.Equal(t, g.RecordGroupID, outcomes.Items[0].EntityID)
	assert.Equal(t, "Bandeja 3", outcomes.Items[0].EntityName)
}

func TestGrows_EliminarSinCuerpoNoRegistraDesenlace(t *testing.T) {
	f := newAPI(t)
	g := f.createGrow("Bandeja 4")

	resp := f.do(http.MethodDelete, "/api/grows/"+g.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, f.store.Count(repository.CollectionOutcomes))
}

func TestOutcomes_DesenlaceSobreGrowAjenoRecibe403(t *testing.T) {
	f := newAPI(t)
	g := f.createGrow("Bandeja 5")
	req := dto.OutcomeRequest{EntityType: entity.EntityGrow, EntityID: g.RecordGroupID, Category: entity.OutcomeFailure, Code: "abandoned"}

	resp := f.doAs(bearer(t, "otro-usuario"), http.MethodPost, "/api/outcomes", req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))
	assert.Equal(t, 0, f.store.Count(repository.CollectionOutcomes))

	resp = f.do(http.MethodPost, "/api/outcomes", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, f.store.Count(repository.CollectionOutcomes))
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario y registros
// ──────────────────────────────────────────────────────────────────────────────

func TestInventory_ConsumoInsuficienteRecibe409(t *testing.T) {
	f := newAPI(t)
	g := f.createGrow("Bandeja 5")

	resp := f.do(http.MethodPost, "/api/inventory/items", dto.CreateItemRequest{Name: "Guantes", AssetType: entity.AssetConsumable})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[entity.InventoryItem](t, resp)

	resp = f.do(http.MethodPost, "/api/inventory/items/"+item.ID+"/lots", dto.CreateLotRequest{
		Quantity:     decimal.NewFromInt(10),
		PurchaseCost: decimal.NewFromInt(5),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lot := decode[entity.InventoryLot](t, resp)

	usage := dto.ConsumeRequest{LotID: lot.ID, Quantity: decimal.NewFromInt(4), ReferenceType: entity.ReferenceGrow, ReferenceID: g.ID}
	resp = f.do(http.MethodPost, "/api/inventory/usage", usage)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(http.MethodGet, "/api/grows/"+g.ID+"/inventory-cost", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cost := decode[dto.GrowCostResponse](t, resp)
	assert.True(t, decimal.NewFromInt(2).Equal(cost.InventoryCost), "4 × 0.5")

	usage.Quantity = decimal.NewFromInt(7)
	resp = f.do(http.MethodPost, "/api/inventory/usage", usage)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, resp))
}

func TestRecords_ArchivarTodo(t *testing.T) {
	f := newAPI(t)
	f.createAgar()
	f.createAgar()
	g := f.createGrow("Bandeja 6")

	resp := f.do(http.MethodPost, "/api/records/archive-all", dto.ArchiveRequest{Reason: "fin de temporada"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := decode[cultivation.ArchiveCounts](t, resp)
	assert.Equal(t, 2, counts.CulturesArchived)
	assert.Equal(t, 1, counts.GrowsArchived)

	resp = f.do(http.MethodPost, "/api/records/grow/"+g.ID+"/archive", dto.ArchiveRequest{Reason: "otra vez"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "archivar de nuevo no hace nada")

	resp = f.do(http.MethodGet, "/api/grows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[dto.ListResponse[entity.Grow]](t, resp).Total)
}

func TestMetrics_ExponeMutaciones(t *testing.T) {
	f := newAPI(t)
	f.createAgar()

	resp := f.doAs("", http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cultivo_lab_engine_mutations_total")
}
