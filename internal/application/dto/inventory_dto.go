package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest body para POST /api/inventory/items.
type CreateItemRequest struct {
	Name              string           `json:"name"`
	AssetType         string           `json:"asset_type"`
	Unit              string           `json:"unit,omitempty"`
	IncludeInGrowCost *bool            `json:"include_in_grow_cost,omitempty"`
	CurrentValue      *decimal.Decimal `json:"current_value,omitempty"`
}

// CreateLotRequest body para POST /api/inventory/items/:id/lots.
type CreateLotRequest struct {
	Quantity     decimal.Decimal `json:"quantity"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	PurchasedAt  *time.Time      `json:"purchased_at,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

// ConsumeRequest body para POST /api/inventory/usage.
type ConsumeRequest struct {
	LotID         string          `json:"lot_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Notes         string          `json:"notes,omitempty"`
	UsedAt        *time.Time      `json:"used_at,omitempty"`
}

// CreateLocationRequest body para POST /api/locations.
type CreateLocationRequest struct {
	Name      string          `json:"name"`
	FixedCost decimal.Decimal `json:"fixed_cost"`
}
