package cultivation

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
)

// record restricción de las entidades versionadas (Culture, Grow, PreparedSpawn).
type record[T any] interface {
	*T
	Meta() *entity.Version
	Clone() *T
}

// kind describe una colección versionada: su tabla, su mapa en la proyección y su validación de enmienda.
type kind[T any, P record[T]] struct {
	entityType string
	table      func(repository.Tables) repository.Table[T]
	rows       func(*projection) map[string]*T
	// prepare valida y deriva campos de la nueva versión antes de escribirla; prev es la versión reemplazada.
	prepare func(e *Engine, next, prev *T) error
}

func cultureKind() kind[entity.Culture, *entity.Culture] {
	return kind[entity.Culture, *entity.Culture]{
		entityType: entity.EntityCulture,
		table:      func(t repository.Tables) repository.Table[entity.Culture] { return t.Cultures },
		rows:       func(p *projection) map[string]*entity.Culture { return p.cultures },
		prepare:    (*Engine).prepareCultureVersion,
	}
}

func growKind() kind[entity.Grow, *entity.Grow] {
	return kind[entity.Grow, *entity.Grow]{
		entityType: entity.EntityGrow,
		table:      func(t repository.Tables) repository.Table[entity.Grow] { return t.Grows },
		rows:       func(p *projection) map[string]*entity.Grow { return p.grows },
		prepare:    (*Engine).prepareGrowVersion,
	}
}

func preparedSpawnKind() kind[entity.PreparedSpawn, *entity.PreparedSpawn] {
	return kind[entity.PreparedSpawn, *entity.PreparedSpawn]{
		entityType: entity.EntityPreparedSpawn,
		table:      func(t repository.Tables) repository.Table[entity.PreparedSpawn] { return t.PreparedSpawn },
		rows:       func(p *projection) map[string]*entity.PreparedSpawn { return p.spawn },
		prepare:    (*Engine).preparePreparedSpawnVersion,
	}
}

// head última versión conocida de un grupo.
type head struct {
	id     string
	number int
}

// projection vista en memoria del almacén. Los valores son inmutables una vez publicados:
// toda mutación reemplaza el puntero por una copia nueva.
type projection struct {
	cultures  map[string]*entity.Culture
	grows     map[string]*entity.Grow
	spawn     map[string]*entity.PreparedSpawn
	items     map[string]*entity.InventoryItem
	lots      map[string]*entity.InventoryLot
	usages    map[string]*entity.InventoryUsage
	locations map[string]*entity.Location
	heads     map[string]map[string]head // tipo de entidad → grupo → última versión
}

func newProjection() *projection {
	return &projection{
		cultures:  make(map[string]*entity.Culture),
		grows:     make(map[string]*entity.Grow),
		spawn:     make(map[string]*entity.PreparedSpawn),
		items:     make(map[string]*entity.InventoryItem),
		lots:      make(map[string]*entity.InventoryLot),
		usages:    make(map[string]*entity.InventoryUsage),
		locations: make(map[string]*entity.Location),
		heads: map[string]map[string]head{
			entity.EntityCulture:       {},
			entity.EntityGrow:          {},
			entity.EntityPreparedSpawn: {},
		},
	}
}

func (p *projection) track(entityType string, v *entity.Version) {
	heads := p.heads[entityType]
	if h, ok := heads[v.GroupID()]; !ok || v.Number >= h.number {
		heads[v.GroupID()] = head{id: v.ID, number: v.Number}
	}
}

func loadProjection(ctx context.Context, t repository.Tables) (*projection, error) {
	p := newProjection()
	if err := loadVersioned(ctx, p, cultureKind(), t); err != nil {
		return nil, err
	}
	if err := loadVersioned(ctx, p, growKind(), t); err != nil {
		return nil, err
	}
	if err := loadVersioned(ctx, p, preparedSpawnKind(), t); err != nil {
		return nil, err
	}

	items, err := t.Items.Select(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		p.items[it.ID] = it
	}
	lots, err := t.Lots.Select(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range lots {
		p.lots[l.ID] = l
	}
	usages, err := t.Usages.Select(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, u := range usages {
		p.usages[u.ID] = u
	}
	locations, err := t.Locations.Select(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range locations {
		p.locations[l.ID] = l
	}
	return p, nil
}

func loadVersioned[T any, P record[T]](ctx context.Context, p *projection, k kind[T, P], t repository.Tables) error {
	rows, err := k.table(t).Select(ctx, nil)
	if err != nil {
		return fmt.Errorf("cargar %s: %w", k.entityType, err)
	}
	for _, row := range rows {
		putRow(p, k, row)
	}
	return nil
}

func putRow[T any, P record[T]](p *projection, k kind[T, P], row *T) {
	meta := P(row).Meta()
	k.rows(p)[meta.ID] = row
	p.track(k.entityType, meta)
}

// headRow última versión del grupo al que pertenece id (cualquier versión del grupo sirve de referencia).
func headRow[T any, P record[T]](p *projection, k kind[T, P], id string) *T {
	rows := k.rows(p)
	row := rows[id]
	if row == nil {
		return nil
	}
	if h, ok := p.heads[k.entityType][P(row).Meta().GroupID()]; ok {
		if latest := rows[h.id]; latest != nil {
			return latest
		}
	}
	return row
}

// groupRows todas las versiones de un grupo, por número ascendente.
func groupRows[T any, P record[T]](p *projection, k kind[T, P], groupID string) []*T {
	var out []*T
	for _, row := range k.rows(p) {
		if P(row).Meta().GroupID() == groupID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return P(out[i]).Meta().Number < P(out[j]).Meta().Number })
	return out
}

func removeGroup[T any, P record[T]](p *projection, k kind[T, P], groupID string) {
	rows := k.rows(p)
	for id, row := range rows {
		if P(row).Meta().GroupID() == groupID {
			delete(rows, id)
		}
	}
	delete(p.heads[k.entityType], groupID)
}

// liveRow resuelve id a la versión vigente de su grupo para una mutación de campos (no enmienda).
// ErrNotFound si no existe, ErrForbidden si es de otro usuario, ErrValidation si el grupo está archivado.
func liveRow[T any, P record[T]](e *Engine, k kind[T, P], actor, id string) (*T, error) {
	row := headRow(e.proj, k, id)
	if row == nil {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, k.entityType, id)
	}
	meta := P(row).Meta()
	if err := authorize(actor, meta.UserID); err != nil {
		return nil, err
	}
	if meta.IsArchived {
		return nil, fmt.Errorf("%w: %s %s está archivado", domain.ErrValidation, k.entityType, id)
	}
	return row, nil
}

// activeRows versiones vigentes no archivadas del actor, por fecha de creación.
func activeRows[T any, P record[T]](e *Engine, k kind[T, P], actor string) []*T {
	e.view.RLock()
	defer e.view.RUnlock()
	var out []*T
	for _, row := range k.rows(e.proj) {
		meta := P(row).Meta()
		if meta.UserID == actor && meta.IsLive() {
			out = append(out, P(row).Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := P(out[i]).Meta(), P(out[j]).Meta()
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// rowByID copia de la versión exacta id.
func rowByID[T any, P record[T]](e *Engine, k kind[T, P], actor, id string) (*T, error) {
	e.view.RLock()
	defer e.view.RUnlock()
	row := k.rows(e.proj)[id]
	if row == nil {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, k.entityType, id)
	}
	if err := authorize(actor, P(row).Meta().UserID); err != nil {
		return nil, err
	}
	return P(row).Clone(), nil
}

// ─── Vistas ──────────────────────────────────────────────────────────────────

// ActiveCultures cultivos vigentes y no archivados del actor.
func (e *Engine) ActiveCultures(ctx context.Context) ([]*entity.Culture, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return activeRows(e, cultureKind(), actor), nil
}

// ActiveGrows Grow vigentes y no archivados del actor.
func (e *Engine) ActiveGrows(ctx context.Context) ([]*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return activeRows(e, growKind(), actor), nil
}

// ActivePreparedSpawn lotes de spawn vigentes y no archivados del actor.
func (e *Engine) ActivePreparedSpawn(ctx context.Context) ([]*entity.PreparedSpawn, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return activeRows(e, preparedSpawnKind(), actor), nil
}

// CultureByID versión exacta de un cultivo (incluye versiones reemplazadas y archivadas).
func (e *Engine) CultureByID(ctx context.Context, id string) (*entity.Culture, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return rowByID(e, cultureKind(), actor, id)
}

// GrowByID versión exacta de un Grow.
func (e *Engine) GrowByID(ctx context.Context, id string) (*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return rowByID(e, growKind(), actor, id)
}

// PreparedSpawnByID versión exacta de un lote de spawn.
func (e *Engine) PreparedSpawnByID(ctx context.Context, id string) (*entity.PreparedSpawn, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return rowByID(e, preparedSpawnKind(), actor, id)
}

// InventoryItems ítems no archivados del actor, por nombre.
func (e *Engine) InventoryItems(ctx context.Context) ([]*entity.InventoryItem, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.view.RLock()
	defer e.view.RUnlock()
	var out []*entity.InventoryItem
	for _, it := range e.proj.items {
		if it.UserID == actor && !it.IsArchived {
			c := *it
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// InventoryLots lotes del ítem, del más antiguo al más reciente.
func (e *Engine) InventoryLots(ctx context.Context, itemID string) ([]*entity.InventoryLot, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.view.RLock()
	defer e.view.RUnlock()
	item := e.proj.items[itemID]
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	if err := authorize(actor, item.UserID); err != nil {
		return nil, err
	}
	var out []*entity.InventoryLot
	for _, l := range e.proj.lots {
		if l.ItemID == itemID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.Before(out[j].PurchasedAt) })
	return out, nil
}

// Locations ubicaciones del actor.
func (e *Engine) Locations(ctx context.Context) ([]*entity.Location, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	e.view.RLock()
	defer e.view.RUnlock()
	var out []*entity.Location
	for _, l := range e.proj.locations {
		if l.UserID == actor {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
