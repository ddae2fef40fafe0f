package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de cultivo (también son los tipos de destino que generan un cultivo hijo en un traspaso).
const (
	CultureSporeSyringe  = "spore_syringe"
	CultureLiquidCulture = "liquid_culture"
	CultureAgar          = "agar"
	CultureSlant         = "slant"
)

// Estados de un cultivo.
const (
	CultureStatusActive       = "active"
	CultureStatusColonizing   = "colonizing"
	CultureStatusReady        = "ready"
	CultureStatusContaminated = "contaminated"
	CultureStatusExpired      = "expired"
	CultureStatusUsed         = "used"
)

// Unidades de traspaso.
const (
	UnitMl    = "ml"
	UnitCc    = "cc"
	UnitDrop  = "drop"
	UnitWedge = "wedge"
)

// Tipos de observación con efectos en cascada.
const (
	ObservationGeneral       = "general"
	ObservationGrowth        = "growth"
	ObservationContamination = "contamination"
	ObservationMilestone     = "milestone"
	ObservationHarvest       = "harvest"
)

// IsCultureType indica si t es un tipo de cultivo válido.
func IsCultureType(t string) bool {
	switch t {
	case CultureSporeSyringe, CultureLiquidCulture, CultureAgar, CultureSlant:
		return true
	}
	return false
}

// Observation anotación fechada sobre un cultivo o un cultivo de fructificación.
type Observation struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	Title        string    `json:"title,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	HealthRating *int      `json:"health_rating,omitempty"`
}

// CultureTransfer traspaso append-only desde un cultivo origen.
// Si ToType es un tipo de cultivo, crea (o apunta a, con ToID) exactamente un cultivo destino.
type CultureTransfer struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	FromCultureID       string          `json:"from_culture_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	Unit                string          `json:"unit"`
	ToType              string          `json:"to_type"`
	ToID                string          `json:"to_id,omitempty"`
	Date                time.Time       `json:"date"`
	Notes               string          `json:"notes,omitempty"`
	TransferredVolumeMl decimal.Decimal `json:"transferred_volume_ml"`
	CostPerMl           decimal.Decimal `json:"cost_per_ml"`
	TransferredCost     decimal.Decimal `json:"transferred_cost"`
}

// Culture jeringa de esporas, cultivo líquido, placa de agar o slant.
// Generation es 0 en la raíz y parent.Generation+1 en los hijos.
type Culture struct {
	Version
	Name              string            `json:"name"`
	Type              string            `json:"type"`
	StrainID          string            `json:"strain_id,omitempty"`
	ParentID          string            `json:"parent_id,omitempty"`
	Generation        int               `json:"generation"`
	FillVolumeMl      decimal.Decimal   `json:"fill_volume_ml"`
	VolumeUsed        decimal.Decimal   `json:"volume_used"`
	PurchaseCost      decimal.Decimal   `json:"purchase_cost"`
	ProductionCost    decimal.Decimal   `json:"production_cost"`
	ParentCultureCost decimal.Decimal   `json:"parent_culture_cost"`
	Cost              decimal.Decimal   `json:"cost"` // legado: costo único previo al desglose
	CostPerMl         decimal.Decimal   `json:"cost_per_ml"`
	Status            string            `json:"status"`
	HealthRating      *int              `json:"health_rating,omitempty"`
	LocationID        string            `json:"location_id,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Observations      []Observation     `json:"observations"`
	Transfers         []CultureTransfer `json:"transfers"`
}

// Clone copia profunda; cada versión escrita es un valor independiente.
func (c *Culture) Clone() *Culture {
	if c == nil {
		return nil
	}
	out := *c
	out.Version = c.Version.clone()
	out.HealthRating = cloneInt(c.HealthRating)
	out.Observations = cloneObservations(c.Observations)
	out.Transfers = append([]CultureTransfer(nil), c.Transfers...)
	return &out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneObservations(in []Observation) []Observation {
	if in == nil {
		return nil
	}
	out := make([]Observation, len(in))
	for i, o := range in {
		o.HealthRating = cloneInt(o.HealthRating)
		out[i] = o
	}
	return out
}
