package cultivation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// CultureInput alta de un cultivo. Con ParentID la generación se deriva del padre.
type CultureInput struct {
	Name           string
	Type           string
	StrainID       string
	ParentID       string
	FillVolumeMl   decimal.Decimal
	PurchaseCost   decimal.Decimal
	ProductionCost decimal.Decimal
	Status         string
	LocationID     string
	Notes          string
}

// GrowInput alta de un Grow en etapa spawning.
type GrowInput struct {
	Name            string
	StrainID        string
	SourceCultureID string
	LocationID      string
	SpawnWeight     decimal.Decimal
	SubstrateWeight decimal.Decimal
	SpawnedAt       *time.Time
	LaborCost       decimal.Decimal
	OverheadCost    decimal.Decimal
	Revenue         *decimal.Decimal
	Notes           string
}

// PreparedSpawnInput alta de un lote de spawn preparado.
type PreparedSpawnInput struct {
	Name            string
	SpawnType       string
	Weight          decimal.Decimal
	Cost            decimal.Decimal
	Status          string
	SourceCultureID string
	Notes           string
}

// ItemInput alta de un ítem de inventario.
type ItemInput struct {
	Name              string
	AssetType         string
	Unit              string
	IncludeInGrowCost *bool
	CurrentValue      *decimal.Decimal
}

// LotInput compra de un lote; el costo unitario es PurchaseCost / Quantity.
type LotInput struct {
	ItemID       string
	Quantity     decimal.Decimal
	PurchaseCost decimal.Decimal
	PurchasedAt  *time.Time
	ExpiresAt    *time.Time
}

// LocationInput alta de una ubicación.
type LocationInput struct {
	Name      string
	FixedCost decimal.Decimal
}

// insertVersioned inserta la primera versión de un registro y la publica en la proyección.
func insertVersioned[T any, P record[T]](ctx context.Context, e *Engine, k kind[T, P], actor string, row *T) error {
	meta := P(row).Meta()
	return e.mutate(ctx, "create_"+k.entityType, func(tx repository.Tables, st *txState) error {
		if err := k.table(tx).Insert(ctx, meta.ID, row); err != nil {
			return err
		}
		st.stage(func(p *projection) { putRow(p, k, row) })
		st.emit(ChangeEvent{Op: OpCreate, EntityType: k.entityType, ID: meta.ID, RecordGroupID: meta.GroupID(), ActorID: actor, At: meta.CreatedAt})
		return nil
	})
}

// CreateCulture da de alta un cultivo.
func (e *Engine) CreateCulture(ctx context.Context, in CultureInput) (*entity.Culture, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: el cultivo necesita nombre", domain.ErrInvalidInput)
	}
	if in.PurchaseCost.IsNegative() || in.ProductionCost.IsNegative() {
		return nil, fmt.Errorf("%w: los costos no pueden ser negativos", domain.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = entity.CultureStatusActive
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c := &entity.Culture{
		Version:        entity.NewVersion(e.newID(), actor, e.now()),
		Name:           strings.TrimSpace(in.Name),
		Type:           in.Type,
		StrainID:       in.StrainID,
		ParentID:       in.ParentID,
		FillVolumeMl:   in.FillVolumeMl,
		PurchaseCost:   in.PurchaseCost,
		ProductionCost: in.ProductionCost,
		Status:         status,
		LocationID:     in.LocationID,
		Notes:          in.Notes,
	}
	if err := e.prepareCultureVersion(c, nil); err != nil {
		return nil, err
	}
	if err := insertVersioned(ctx, e, cultureKind(), actor, c); err != nil {
		return nil, err
	}
	e.log.Info().Str("id", c.ID).Str("type", c.Type).Int("generation", c.Generation).Msg("cultivo creado")
	return c.Clone(), nil
}

// CreateGrow da de alta un Grow en spawning con sus costos derivados.
func (e *Engine) CreateGrow(ctx context.Context, in GrowInput) (*entity.Grow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if in.LaborCost.IsNegative() || in.OverheadCost.IsNegative() {
		return nil, fmt.Errorf("%w: los costos no pueden ser negativos", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	spawned := now
	if in.SpawnedAt != nil {
		spawned = in.SpawnedAt.UTC()
	}
	g := &entity.Grow{
		Version:         entity.NewVersion(e.newID(), actor, now),
		Name:            strings.TrimSpace(in.Name),
		StrainID:        in.StrainID,
		SourceCultureID: in.SourceCultureID,
		LocationID:      in.LocationID,
		CurrentStage:    entity.StageSpawning,
		Status:          entity.GrowStatusActive,
		SpawnWeight:     in.SpawnWeight,
		SubstrateWeight: in.SubstrateWeight,
		SpawnedAt:       spawned,
		LaborCost:       in.LaborCost,
		OverheadCost:    in.OverheadCost,
		Revenue:         in.Revenue,
		Notes:           in.Notes,
	}
	if err := e.prepareGrowVersion(g, nil); err != nil {
		return nil, err
	}
	if err := insertVersioned(ctx, e, growKind(), actor, g); err != nil {
		return nil, err
	}
	e.log.Info().Str("id", g.ID).Str("source_culture_id", g.SourceCultureID).Msg("grow creado")
	return g.Clone(), nil
}

// CreatePreparedSpawn da de alta un lote de spawn preparado.
func (e *Engine) CreatePreparedSpawn(ctx context.Context, in PreparedSpawnInput) (*entity.PreparedSpawn, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = "ready"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := &entity.PreparedSpawn{
		Version:         entity.NewVersion(e.newID(), actor, e.now()),
		Name:            strings.TrimSpace(in.Name),
		SpawnType:       in.SpawnType,
		Weight:          in.Weight,
		Cost:            in.Cost,
		Status:          status,
		SourceCultureID: in.SourceCultureID,
		Notes:           in.Notes,
	}
	if err := e.preparePreparedSpawnVersion(s, nil); err != nil {
		return nil, err
	}
	if err := insertVersioned(ctx, e, preparedSpawnKind(), actor, s); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func validAssetType(t string) bool {
	switch t {
	case entity.AssetEquipment, entity.AssetDurable, entity.AssetConsumable, entity.AssetCultureSource:
		return true
	}
	return false
}

// CreateInventoryItem da de alta un ítem de inventario.
func (e *Engine) CreateInventoryItem(ctx context.Context, in ItemInput) (*entity.InventoryItem, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: el ítem necesita nombre", domain.ErrInvalidInput)
	}
	if in.AssetType == "" {
		in.AssetType = entity.AssetConsumable
	}
	if !validAssetType(in.AssetType) {
		return nil, fmt.Errorf("%w: tipo de activo %q", domain.ErrInvalidInput, in.AssetType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	item := &entity.InventoryItem{
		ID:                e.newID(),
		UserID:            actor,
		Name:              strings.TrimSpace(in.Name),
		AssetType:         in.AssetType,
		Unit:              in.Unit,
		IncludeInGrowCost: in.IncludeInGrowCost,
		CurrentValue:      in.CurrentValue,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = e.mutate(ctx, "create_inventory_item", func(tx repository.Tables, st *txState) error {
		if err := tx.Items.Insert(ctx, item.ID, item); err != nil {
			return err
		}
		st.stage(func(p *projection) { p.items[item.ID] = item })
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := *item
	return &out, nil
}

// AddLot registra la compra de un lote de un ítem del actor.
func (e *Engine) AddLot(ctx context.Context, in LotInput) (*entity.InventoryLot, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if in.PurchaseCost.IsNegative() {
		return nil, fmt.Errorf("%w: el costo no puede ser negativo", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item := e.proj.items[in.ItemID]
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, in.ItemID)
	}
	if err := authorize(actor, item.UserID); err != nil {
		return nil, err
	}

	now := e.now()
	purchased := now
	if in.PurchasedAt != nil {
		purchased = in.PurchasedAt.UTC()
	}
	lot := &entity.InventoryLot{
		ID:               e.newID(),
		UserID:           actor,
		ItemID:           item.ID,
		Quantity:         in.Quantity,
		OriginalQuantity: in.Quantity,
		PurchaseCost:     in.PurchaseCost,
		UnitCost:         in.PurchaseCost.Div(in.Quantity),
		Status:           entity.LotStatusAvailable,
		PurchasedAt:      purchased,
		ExpiresAt:        in.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = e.mutate(ctx, "add_lot", func(tx repository.Tables, st *txState) error {
		if err := tx.Lots.Insert(ctx, lot.ID, lot); err != nil {
			return err
		}
		st.stage(func(p *projection) { p.lots[lot.ID] = lot })
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := *lot
	return &out, nil
}

// CreateLocation da de alta una ubicación con su costo fijo.
func (e *Engine) CreateLocation(ctx context.Context, in LocationInput) (*entity.Location, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: la ubicación necesita nombre", domain.ErrInvalidInput)
	}
	if in.FixedCost.IsNegative() {
		return nil, fmt.Errorf("%w: el costo fijo no puede ser negativo", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	loc := &entity.Location{
		ID:        e.newID(),
		UserID:    actor,
		Name:      strings.TrimSpace(in.Name),
		FixedCost: in.FixedCost,
		CreatedAt: e.now(),
	}
	err = e.mutate(ctx, "create_location", func(tx repository.Tables, st *txState) error {
		if err := tx.Locations.Insert(ctx, loc.ID, loc); err != nil {
			return err
		}
		st.stage(func(p *projection) { p.locations[loc.ID] = loc })
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := *loc
	return &out, nil
}
