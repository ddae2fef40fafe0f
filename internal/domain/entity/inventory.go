package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de activo de un ítem de inventario (buckets de la valoración del laboratorio).
const (
	AssetEquipment     = "equipment"
	AssetDurable       = "durable"
	AssetConsumable    = "consumable"
	AssetCultureSource = "culture_source"
)

// Estados de un lote.
const (
	LotStatusAvailable = "available"
	LotStatusLow       = "low"
	LotStatusEmpty     = "empty"
)

// Referencias de consumo.
const (
	ReferenceGrow          = "grow"
	ReferenceCulture       = "culture"
	ReferencePreparedSpawn = "prepared_spawn"
)

// InventoryItem consumible, equipo o bien durable del laboratorio.
// IncludeInGrowCost nil se interpreta como true.
type InventoryItem struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	Name              string           `json:"name"`
	AssetType         string           `json:"asset_type"`
	Unit              string           `json:"unit,omitempty"`
	IncludeInGrowCost *bool            `json:"include_in_grow_cost,omitempty"`
	CurrentValue      *decimal.Decimal `json:"current_value,omitempty"`
	IsArchived        bool             `json:"is_archived"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CountsTowardGrowCost indica si el consumo del ítem se imputa al costo de un Grow.
func (i *InventoryItem) CountsTowardGrowCost() bool {
	if i.AssetType == AssetEquipment {
		return false
	}
	return i.IncludeInGrowCost == nil || *i.IncludeInGrowCost
}

// InventoryLot lote comprado de un ítem con cantidad restante propia.
type InventoryLot struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	ItemID           string          `json:"item_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	OriginalQuantity decimal.Decimal `json:"original_quantity"`
	PurchaseCost     decimal.Decimal `json:"purchase_cost"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Status           string          `json:"status"`
	PurchasedAt      time.Time       `json:"purchased_at"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// RemainingValue valor de la cantidad restante al costo unitario del lote.
func (l *InventoryLot) RemainingValue() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// InventoryUsage consumo append-only con snapshot del costo al momento de uso.
type InventoryUsage struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	LotID           string          `json:"lot_id"`
	ItemID          string          `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCostAtUsage decimal.Decimal `json:"unit_cost_at_usage"`
	ConsumedCost    decimal.Decimal `json:"consumed_cost"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceID     string          `json:"reference_id"`
	Notes           string          `json:"notes,omitempty"`
	UsedAt          time.Time       `json:"used_at"`
}

// Location ubicación física (cuarto de incubación, campana de flujo) con costo fijo de montaje.
// En la valoración del laboratorio el costo fijo se clasifica como equipo.
type Location struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	FixedCost decimal.Decimal `json:"fixed_cost"`
	CreatedAt time.Time       `json:"created_at"`
}
