package cultivation

import (
	"fmt"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Constantes de conversión fijas de los traspasos y de la estimación de volumen de spawn.
var (
	DropVolumeMl    = decimal.RequireFromString("0.05") // 1 gota ≈ 0.05 ml
	WedgeFraction   = decimal.RequireFromString("0.1")  // 1 cuña ≈ 10% del volumen del origen
	SpawnWeightToMl = decimal.NewFromInt(100)           // ml estimados = peso de spawn / 100
)

// CultureTotalCost suma compra, producción, costo heredado del padre y el costo legado.
func CultureTotalCost(c *entity.Culture) decimal.Decimal {
	return c.PurchaseCost.Add(c.ProductionCost).Add(c.ParentCultureCost).Add(c.Cost)
}

// CostPerMl = costo total / volumen; 0 si alguno de los operandos no es positivo.
func CostPerMl(c *entity.Culture) decimal.Decimal {
	total := CultureTotalCost(c)
	if !total.IsPositive() || !c.FillVolumeMl.IsPositive() {
		return decimal.Zero
	}
	return total.Div(c.FillVolumeMl)
}

// TransferVolumeMl convierte cantidad+unidad a ml. La cuña se mide sobre el volumen del origen.
func TransferVolumeMl(quantity decimal.Decimal, unit string, sourceFillMl decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	switch unit {
	case entity.UnitMl, entity.UnitCc:
		return quantity, nil
	case entity.UnitDrop:
		return quantity.Mul(DropVolumeMl), nil
	case entity.UnitWedge:
		return quantity.Mul(WedgeFraction).Mul(sourceFillMl), nil
	}
	return decimal.Zero, fmt.Errorf("%w: unidad %q", domain.ErrInvalidInput, unit)
}

// EstimatedSpawnVolumeMl heurística fija: volumen de cultivo usado = peso de spawn / 100.
func EstimatedSpawnVolumeMl(spawnWeight decimal.Decimal) decimal.Decimal {
	if !spawnWeight.IsPositive() {
		return decimal.Zero
	}
	return spawnWeight.Div(SpawnWeightToMl)
}

// CostPerGram costo por gramo; nil si no hay rendimiento.
func CostPerGram(totalCost, weight decimal.Decimal) *decimal.Decimal {
	if !weight.IsPositive() {
		return nil
	}
	v := totalCost.Div(weight)
	return &v
}
