package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateGrowRequest body para POST /api/grows.
type CreateGrowRequest struct {
	Name            string           `json:"name"`
	StrainID        string           `json:"strain_id,omitempty"`
	SourceCultureID string           `json:"source_culture_id,omitempty"`
	LocationID      string           `json:"location_id,omitempty"`
	SpawnWeight     decimal.Decimal  `json:"spawn_weight"`
	SubstrateWeight decimal.Decimal  `json:"substrate_weight"`
	SpawnedAt       *time.Time       `json:"spawned_at,omitempty"`
	LaborCost       decimal.Decimal  `json:"labor_cost"`
	OverheadCost    decimal.Decimal  `json:"overhead_cost"`
	Revenue         *decimal.Decimal `json:"revenue,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// AmendGrowRequest body para PUT /api/grows/:id. Solo se aplican los campos presentes.
type AmendGrowRequest struct {
	AmendmentMeta
	Name            *string          `json:"name,omitempty"`
	StrainID        *string          `json:"strain_id,omitempty"`
	SourceCultureID *string          `json:"source_culture_id,omitempty"`
	LocationID      *string          `json:"location_id,omitempty"`
	SpawnWeight     *decimal.Decimal `json:"spawn_weight,omitempty"`
	SubstrateWeight *decimal.Decimal `json:"substrate_weight,omitempty"`
	LaborCost       *decimal.Decimal `json:"labor_cost,omitempty"`
	OverheadCost    *decimal.Decimal `json:"overhead_cost,omitempty"`
	Revenue         *decimal.Decimal `json:"revenue,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

// FlushRequest body para POST /api/grows/:id/flushes.
type FlushRequest struct {
	WetWeight   decimal.Decimal `json:"wet_weight"`
	DryWeight   decimal.Decimal `json:"dry_weight"`
	HarvestedAt *time.Time      `json:"harvested_at,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// GrowCostResponse costo de inventario imputado a un Grow.
type GrowCostResponse struct {
	GrowID        string          `json:"grow_id"`
	InventoryCost decimal.Decimal `json:"inventory_cost"`
}

// CreatePreparedSpawnRequest body para POST /api/prepared-spawn.
type CreatePreparedSpawnRequest struct {
	Name            string          `json:"name"`
	SpawnType       string          `json:"spawn_type"`
	Weight          decimal.Decimal `json:"weight"`
	Cost            decimal.Decimal `json:"cost"`
	Status          string          `json:"status,omitempty"`
	SourceCultureID string          `json:"source_culture_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// AmendPreparedSpawnRequest body para PUT /api/prepared-spawn/:id.
type AmendPreparedSpawnRequest struct {
	AmendmentMeta
	Name      *string          `json:"name,omitempty"`
	SpawnType *string          `json:"spawn_type,omitempty"`
	Weight    *decimal.Decimal `json:"weight,omitempty"`
	Cost      *decimal.Decimal `json:"cost,omitempty"`
	Status    *string          `json:"status,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
}
