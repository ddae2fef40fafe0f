package cultivation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "user-1"

// ─── Helpers ────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// Now avanza un minuto en cada lectura para que las marcas temporales sean distinguibles.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []cultivation.ChangeEvent
	failures []cultivation.Failure
}

func (n *recordingNotifier) Publish(_ context.Context, ev cultivation.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) ReportFailure(_ context.Context, f cultivation.Failure) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, f)
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	engine   *cultivation.Engine
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	engine := cultivation.New(store, cultivation.WithClock(clock.Now), cultivation.WithNotifier(notifier))
	return &fixture{
		ctx:      cultivation.WithActor(context.Background(), userID),
		store:    store,
		engine:   engine,
		notifier: notifier,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func (f *fixture) agar(t *testing.T, name string) *entity.Culture {
	t.Helper()
	c, err := f.engine.CreateCulture(f.ctx, cultivation.CultureInput{
		Name:         name,
		Type:         entity.CultureAgar,
		FillVolumeMl: dec("20"),
		PurchaseCost: dec("10"),
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) grow(t *testing.T, name, sourceID string) *entity.Grow {
	t.Helper()
	g, err := f.engine.CreateGrow(f.ctx, cultivation.GrowInput{
		Name:            name,
		SourceCultureID: sourceID,
		SpawnWeight:     dec("500"),
	})
	require.NoError(t, err)
	return g
}

func currentCount(t *testing.T, history []entity.VersionSummary) int {
	t.Helper()
	n := 0
	for _, v := range history {
		if v.IsCurrent {
			n++
		}
	}
	return n
}

// ─── Autorización ───────────────────────────────────────────────────────────

func TestEngine_SinActorNoAutorizado(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateCulture(context.Background(), cultivation.CultureInput{Name: "x", Type: entity.CultureAgar})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.engine.ActiveCultures(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestEngine_OtroUsuarioNoPuedeMutar(t *testing.T) {
	f := newFixture(t)
	c := f.agar(t, "A")
	other := cultivation.WithActor(context.Background(), "user-2")

	_, err := f.engine.AmendCulture(other, c.ID, func(c *entity.Culture) { c.Name = "B" }, entity.AmendmentCorrection, "typo")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.True(t, domain.IsAuthorization(err))

	err = f.engine.Archive(other, entity.EntityCulture, c.ID, "limpieza")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, err := f.engine.ActiveCultures(other)
	require.NoError(t, err)
	assert.Empty(t, list, "las vistas filtran por actor")
}

// ─── Refresh ────────────────────────────────────────────────────────────────

func TestEngine_RefreshCargaDesdeElAlmacen(t *testing.T) {
	f := newFixture(t)
	c := f.agar(t, "A")
	f.grow(t, "G", c.ID)

	second := cultivation.New(f.store)
	list, err := second.ActiveCultures(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "sin Refresh la proyección está vacía")

	require.NoError(t, second.Refresh(f.ctx))
	cultures, err := second.ActiveCultures(f.ctx)
	require.NoError(t, err)
	require.Len(t, cultures, 1)
	assert.Equal(t, c.ID, cultures[0].ID)
	grows, err := second.ActiveGrows(f.ctx)
	require.NoError(t, err)
	assert.Len(t, grows, 1)
}

func TestEngine_HandleChangeIgnoraSuPropioEco(t *testing.T) {
	f := newFixture(t)
	f.agar(t, "A")
	require.NotEmpty(t, f.notifier.events)
	ev := f.notifier.events[0]
	assert.Equal(t, f.engine.InstanceID(), ev.Source)
	assert.Equal(t, cultivation.OpCreate, ev.Op)

	other := cultivation.New(f.store)
	require.NoError(t, other.HandleChange(f.ctx, ev))
	list, err := other.ActiveCultures(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "un evento de otra instancia provoca recarga")
}
