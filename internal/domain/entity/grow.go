package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Etapas de un cultivo de fructificación (máquina de estados).
const (
	StageSpawning     = "spawning"
	StageColonization = "colonization"
	StageFruiting     = "fruiting"
	StageHarvesting   = "harvesting"
	StageCompleted    = "completed"
	StageContaminated = "contaminated"
	StageAborted      = "aborted"
)

// Estados de un Grow.
const (
	GrowStatusActive    = "active"
	GrowStatusCompleted = "completed"
	GrowStatusFailed    = "failed"
	GrowStatusAborted   = "aborted"
)

// Flush cosecha de un Grow; FlushNumber es 1-based y consecutivo.
type Flush struct {
	ID          string          `json:"id"`
	FlushNumber int             `json:"flush_number"`
	HarvestedAt time.Time       `json:"harvested_at"`
	WetWeight   decimal.Decimal `json:"wet_weight"`
	DryWeight   decimal.Decimal `json:"dry_weight"`
	Notes       string          `json:"notes,omitempty"`
}

// Grow cultivo de fructificación inoculado desde un cultivo (opcional) sobre sustrato.
type Grow struct {
	Version
	Name                  string           `json:"name"`
	StrainID              string           `json:"strain_id,omitempty"`
	SourceCultureID       string           `json:"source_culture_id,omitempty"`
	LocationID            string           `json:"location_id,omitempty"`
	CurrentStage          string           `json:"current_stage"`
	Status                string           `json:"status"`
	SpawnWeight           decimal.Decimal  `json:"spawn_weight"`
	SubstrateWeight       decimal.Decimal  `json:"substrate_weight"`
	SpawnedAt             time.Time        `json:"spawned_at"`
	ColonizationStartedAt *time.Time       `json:"colonization_started_at,omitempty"`
	FruitingStartedAt     *time.Time       `json:"fruiting_started_at,omitempty"`
	CompletedAt           *time.Time       `json:"completed_at,omitempty"`
	ContaminatedAt        *time.Time       `json:"contaminated_at,omitempty"`
	AbortedAt             *time.Time       `json:"aborted_at,omitempty"`
	SourceCultureCost     decimal.Decimal  `json:"source_culture_cost"`
	InventoryCost         decimal.Decimal  `json:"inventory_cost"`
	LaborCost             decimal.Decimal  `json:"labor_cost"`
	OverheadCost          decimal.Decimal  `json:"overhead_cost"`
	TotalCost             decimal.Decimal  `json:"total_cost"`
	CostPerGramWet        *decimal.Decimal `json:"cost_per_gram_wet,omitempty"`
	CostPerGramDry        *decimal.Decimal `json:"cost_per_gram_dry,omitempty"`
	Revenue               *decimal.Decimal `json:"revenue,omitempty"`
	Profit                *decimal.Decimal `json:"profit,omitempty"`
	Notes                 string           `json:"notes,omitempty"`
	Flushes               []Flush          `json:"flushes"`
	Observations          []Observation    `json:"observations"`
}

// TotalWetWeight suma el peso húmedo de todas las cosechas.
func (g *Grow) TotalWetWeight() decimal.Decimal {
	total := decimal.Zero
	for _, f := range g.Flushes {
		total = total.Add(f.WetWeight)
	}
	return total
}

// TotalDryWeight suma el peso seco de todas las cosechas.
func (g *Grow) TotalDryWeight() decimal.Decimal {
	total := decimal.Zero
	for _, f := range g.Flushes {
		total = total.Add(f.DryWeight)
	}
	return total
}

// Clone copia profunda.
func (g *Grow) Clone() *Grow {
	if g == nil {
		return nil
	}
	out := *g
	out.Version = g.Version.clone()
	out.ColonizationStartedAt = cloneTime(g.ColonizationStartedAt)
	out.FruitingStartedAt = cloneTime(g.FruitingStartedAt)
	out.CompletedAt = cloneTime(g.CompletedAt)
	out.ContaminatedAt = cloneTime(g.ContaminatedAt)
	out.AbortedAt = cloneTime(g.AbortedAt)
	out.CostPerGramWet = cloneDecimal(g.CostPerGramWet)
	out.CostPerGramDry = cloneDecimal(g.CostPerGramDry)
	out.Revenue = cloneDecimal(g.Revenue)
	out.Profit = cloneDecimal(g.Profit)
	out.Flushes = append([]Flush(nil), g.Flushes...)
	out.Observations = cloneObservations(g.Observations)
	return &out
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// PreparedSpawn lote de spawn preparado (grano, serrín) versionado como los cultivos.
type PreparedSpawn struct {
	Version
	Name            string          `json:"name"`
	SpawnType       string          `json:"spawn_type"`
	Weight          decimal.Decimal `json:"weight"`
	Cost            decimal.Decimal `json:"cost"`
	Status          string          `json:"status"`
	SourceCultureID string          `json:"source_culture_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// Clone copia profunda.
func (p *PreparedSpawn) Clone() *PreparedSpawn {
	if p == nil {
		return nil
	}
	out := *p
	out.Version = p.Version.clone()
	return &out
}
