package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCultureRequest body para POST /api/cultures.
type CreateCultureRequest struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	StrainID       string          `json:"strain_id,omitempty"`
	ParentID       string          `json:"parent_id,omitempty"`
	FillVolumeMl   decimal.Decimal `json:"fill_volume_ml"`
	PurchaseCost   decimal.Decimal `json:"purchase_cost"`
	ProductionCost decimal.Decimal `json:"production_cost"`
	Status         string          `json:"status,omitempty"`
	LocationID     string          `json:"location_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// AmendCultureRequest body para PUT /api/cultures/:id. Solo se aplican los campos presentes.
type AmendCultureRequest struct {
	AmendmentMeta
	Name           *string          `json:"name,omitempty"`
	Type           *string          `json:"type,omitempty"`
	StrainID       *string          `json:"strain_id,omitempty"`
	ParentID       *string          `json:"parent_id,omitempty"`
	FillVolumeMl   *decimal.Decimal `json:"fill_volume_ml,omitempty"`
	PurchaseCost   *decimal.Decimal `json:"purchase_cost,omitempty"`
	ProductionCost *decimal.Decimal `json:"production_cost,omitempty"`
	Status         *string          `json:"status,omitempty"`
	LocationID     *string          `json:"location_id,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

// TransferRequest body para POST /api/cultures/:id/transfers.
type TransferRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	ToType   string          `json:"to_type"`
	ToID     string          `json:"to_id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Date     *time.Time      `json:"date,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// ContaminationRequest detalle de contaminación de un desenlace.
type ContaminationRequest struct {
	Type           string `json:"type"`
	SuspectedCause string `json:"suspected_cause,omitempty"`
	Stage          string `json:"stage,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// OutcomeRequest desenlace registrado al eliminar un cultivo o Grow (body opcional de DELETE)
// o de forma directa con POST /api/outcomes.
type OutcomeRequest struct {
	EntityType    string                `json:"entity_type,omitempty"`
	EntityID      string                `json:"entity_id,omitempty"`
	EntityName    string                `json:"entity_name,omitempty"`
	Category      string                `json:"category"`
	Code          string                `json:"code"`
	Notes         string                `json:"notes,omitempty"`
	TotalCost     *decimal.Decimal      `json:"total_cost,omitempty"`
	TotalYieldWet *decimal.Decimal      `json:"total_yield_wet,omitempty"`
	TotalYieldDry *decimal.Decimal      `json:"total_yield_dry,omitempty"`
	StartedAt     *time.Time            `json:"started_at,omitempty"`
	EndedAt       *time.Time            `json:"ended_at,omitempty"`
	Contamination *ContaminationRequest `json:"contamination,omitempty"`
}
