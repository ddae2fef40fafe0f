package cultivation

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// LowStockRatio un lote pasa a low cuando le queda esta fracción (o menos) de su cantidad original.
var LowStockRatio = decimal.RequireFromString("0.2")

// Valuation valor del laboratorio por bucket de activo.
type Valuation struct {
	Equipment  decimal.Decimal `json:"equipment"`
	Durable    decimal.Decimal `json:"durable"`
	Consumable decimal.Decimal `json:"consumable"`
	Total      decimal.Decimal `json:"total"`
}

// UsageInput consumo de un lote imputado a una referencia (grow, culture, prepared_spawn).
type UsageInput struct {
	LotID         string
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Notes         string
	UsedAt        *time.Time
}

// GrowInventoryCost suma el costo consumido por el Grow (cualquier versión de su grupo), excluyendo
// equipos e ítems marcados para no imputarse.
func (e *Engine) GrowInventoryCost(ctx context.Context, growID string) (decimal.Decimal, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	e.view.RLock()
	defer e.view.RUnlock()
	g := headRow(e.proj, growKind(), growID)
	if g == nil {
		return decimal.Zero, fmt.Errorf("%w: grow %s", domain.ErrNotFound, growID)
	}
	if err := authorize(actor, g.UserID); err != nil {
		return decimal.Zero, err
	}
	return e.growInventoryCost(g), nil
}

func (e *Engine) growInventoryCost(g *entity.Grow) decimal.Decimal {
	refs := map[string]bool{g.GroupID(): true}
	for _, v := range groupRows(e.proj, growKind(), g.GroupID()) {
		refs[v.ID] = true
	}
	total := decimal.Zero
	for _, u := range e.proj.usages {
		if u.ReferenceType != entity.ReferenceGrow || !refs[u.ReferenceID] {
			continue
		}
		if item := e.proj.items[u.ItemID]; item != nil && !item.CountsTowardGrowCost() {
			continue
		}
		total = total.Add(u.ConsumedCost)
	}
	return total
}

// sourceCostPerMl costo por ml del cultivo origen: el fijado en su último traspaso o, si no hay,
// el derivado de su costo total y volumen actuales.
func sourceCostPerMl(c *entity.Culture) decimal.Decimal {
	if c.CostPerMl.IsPositive() {
		return c.CostPerMl
	}
	return cultivation.CostPerMl(c)
}

// applyGrowCosts deriva el costo total, el costo por gramo y el beneficio del Grow.
func (e *Engine) applyGrowCosts(g *entity.Grow) {
	e.deriveGrowCosts(g, e.growInventoryCost(g))
}

// deriveGrowCosts como applyGrowCosts con el costo de inventario dado.
// Sin cultivo origen resoluble conserva el SourceCultureCost existente.
func (e *Engine) deriveGrowCosts(g *entity.Grow, inventory decimal.Decimal) {
	if g.SourceCultureID != "" {
		if src := e.resolveCulture(g.SourceCultureID); src != nil {
			g.SourceCultureCost = cultivation.EstimatedSpawnVolumeMl(g.SpawnWeight).Mul(sourceCostPerMl(src))
		}
	}
	g.InventoryCost = inventory
	g.TotalCost = g.SourceCultureCost.Add(g.InventoryCost).Add(g.LaborCost).Add(g.OverheadCost)
	g.CostPerGramWet = cultivation.CostPerGram(g.TotalCost, g.TotalWetWeight())
	g.CostPerGramDry = cultivation.CostPerGram(g.TotalCost, g.TotalDryWeight())
	g.Profit = nil
	if g.Revenue != nil {
		profit := g.Revenue.Sub(g.TotalCost)
		g.Profit = &profit
	}
}

// RecalculateGrowCosts recalcula y persiste los costos derivados del Grow (actualización de campos, no enmienda).
func (e *Engine) RecalculateGrowCosts(ctx context.Context, growID string) (*entity.Grow, error) {
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
	g := current.Clone()
	e.applyGrowCosts(g)
	g.UpdatedAt = e.now()
	if err := e.saveGrow(ctx, "recalculate_grow_costs", actor, g); err != nil {
		return nil, err
	}
	e.log.Debug().Str("id", g.ID).Str("total_cost", g.TotalCost.String()).Msg("costos recalculados")
	return g.Clone(), nil
}

// LabValuation valor actual del inventario del actor por bucket más los costos fijos de ubicaciones
// (como equipo). El valor de un ítem es su CurrentValue o, si no tiene, el valor restante de sus lotes.
func (e *Engine) LabValuation(ctx context.Context) (Valuation, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return Valuation{}, err
	}
	e.view.RLock()
	defer e.view.RUnlock()

	lotValue := make(map[string]decimal.Decimal)
	for _, l := range e.proj.lots {
		lotValue[l.ItemID] = lotValue[l.ItemID].Add(l.RemainingValue())
	}
	v := Valuation{Equipment: decimal.Zero, Durable: decimal.Zero, Consumable: decimal.Zero}
	for _, it := range e.proj.items {
		if it.UserID != actor || it.IsArchived {
			continue
		}
		value := lotValue[it.ID]
		if it.CurrentValue != nil {
			value = *it.CurrentValue
		}
		switch it.AssetType {
		case entity.AssetEquipment:
			v.Equipment = v.Equipment.Add(value)
		case entity.AssetDurable:
			v.Durable = v.Durable.Add(value)
		default:
			v.Consumable = v.Consumable.Add(value)
		}
	}
	for _, l := range e.proj.locations {
		if l.UserID == actor {
			v.Equipment = v.Equipment.Add(l.FixedCost)
		}
	}
	v.Total = v.Equipment.Add(v.Durable).Add(v.Consumable)
	return v, nil
}

func lotStatus(l *entity.InventoryLot) string {
	switch {
	case !l.Quantity.IsPositive():
		return entity.LotStatusEmpty
	case l.OriginalQuantity.IsPositive() && l.Quantity.LessThanOrEqual(l.OriginalQuantity.Mul(LowStockRatio)):
		return entity.LotStatusLow
	}
	return entity.LotStatusAvailable
}

// ConsumeInventory descuenta cantidad de un lote y registra el consumo con el costo unitario del
// momento. Si la referencia es un Grow vigente, sus costos se recalculan en la misma transacción.
func (e *Engine) ConsumeInventory(ctx context.Context, in UsageInput) (*entity.InventoryUsage, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	switch in.ReferenceType {
	case entity.ReferenceGrow, entity.ReferenceCulture, entity.ReferencePreparedSpawn:
	default:
		return nil, fmt.Errorf("%w: referencia %q", domain.ErrInvalidInput, in.ReferenceType)
	}
	if in.ReferenceID == "" {
		return nil, fmt.Errorf("%w: referencia obligatoria", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.proj.lots[in.LotID]
	if current == nil {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, in.LotID)
	}
	if err := authorize(actor, current.UserID); err != nil {
		return nil, err
	}
	if current.Quantity.LessThan(in.Quantity) {
		return nil, fmt.Errorf("%w: quedan %s, se piden %s", domain.ErrInsufficientStock, current.Quantity, in.Quantity)
	}

	var grow *entity.Grow
	switch in.ReferenceType {
	case entity.ReferenceGrow:
		g, err := liveRow(e, growKind(), actor, in.ReferenceID)
		if err != nil {
			return nil, err
		}
		grow = g.Clone()
	case entity.ReferenceCulture:
		if _, err := liveRow(e, cultureKind(), actor, in.ReferenceID); err != nil {
			return nil, err
		}
	case entity.ReferencePreparedSpawn:
		if _, err := liveRow(e, preparedSpawnKind(), actor, in.ReferenceID); err != nil {
			return nil, err
		}
	}

	now := e.now()
	usedAt := now
	if in.UsedAt != nil {
		usedAt = in.UsedAt.UTC()
	}
	lot := *current
	lot.Quantity = current.Quantity.Sub(in.Quantity)
	lot.Status = lotStatus(&lot)
	lot.UpdatedAt = now
	usage := &entity.InventoryUsage{
		ID:              e.newID(),
		UserID:          actor,
		LotID:           lot.ID,
		ItemID:          lot.ItemID,
		Quantity:        in.Quantity,
		UnitCostAtUsage: current.UnitCost,
		ConsumedCost:    in.Quantity.Mul(current.UnitCost),
		ReferenceType:   in.ReferenceType,
		ReferenceID:     in.ReferenceID,
		Notes:           in.Notes,
		UsedAt:          usedAt,
	}

	kg := growKind()
	err = e.mutate(ctx, "consume_inventory", func(tx repository.Tables, st *txState) error {
		if err := saveRow(ctx, tx.Lots, lot.ID, &lot); err != nil {
			return err
		}
		if err := tx.Usages.Insert(ctx, usage.ID, usage); err != nil {
			return err
		}
		if grow != nil {
			e.deriveGrowCosts(grow, e.growInventoryCost(grow).Add(e.usageCost(usage)))
			grow.UpdatedAt = now
			if err := saveRow(ctx, tx.Grows, grow.ID, grow); err != nil {
				return err
			}
		}
		st.stage(func(p *projection) {
			p.lots[lot.ID] = &lot
			p.usages[usage.ID] = usage
			if grow != nil {
				putRow(p, kg, grow)
			}
		})
		if grow != nil {
			st.emit(ChangeEvent{Op: OpUpdate, EntityType: entity.EntityGrow, ID: grow.ID, RecordGroupID: grow.GroupID(), ActorID: actor, At: now})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("lot_id", lot.ID).Str("quantity", in.Quantity.String()).Str("status", lot.Status).
		Str("reference_type", in.ReferenceType).Str("reference_id", in.ReferenceID).Msg("consumo registrado")
	out := *usage
	return &out, nil
}

// usageCost costo imputable de un consumo aún no publicado en la proyección.
func (e *Engine) usageCost(u *entity.InventoryUsage) decimal.Decimal {
	if item := e.proj.items[u.ItemID]; item != nil && !item.CountsTowardGrowCost() {
		return decimal.Zero
	}
	return u.ConsumedCost
}
