package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Categorías de desenlace.
const (
	OutcomeSuccess       = "success"
	OutcomeFailure       = "failure"
	OutcomeContamination = "contamination"
	OutcomeNeutral       = "neutral"
)

// EntityOutcome hecho terminal append-only registrado al eliminar un cultivo o Grow.
// Nunca se actualiza ni se enmienda.
type EntityOutcome struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	EntityType      string           `json:"entity_type"`
	EntityID        string           `json:"entity_id"`
	EntityName      string           `json:"entity_name,omitempty"`
	OutcomeCategory string           `json:"outcome_category"`
	OutcomeCode     string           `json:"outcome_code"`
	Notes           string           `json:"notes,omitempty"`
	TotalCost       *decimal.Decimal `json:"total_cost,omitempty"`
	TotalYieldWet   *decimal.Decimal `json:"total_yield_wet,omitempty"`
	TotalYieldDry   *decimal.Decimal `json:"total_yield_dry,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	EndedAt         time.Time        `json:"ended_at"`
	DurationDays    *int             `json:"duration_days,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ContaminationDetails extensión 1:1 de un EntityOutcome (clave OutcomeID).
type ContaminationDetails struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	OutcomeID         string    `json:"outcome_id"`
	ContaminationType string    `json:"contamination_type"`
	SuspectedCause    string    `json:"suspected_cause,omitempty"`
	Stage             string    `json:"stage,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
