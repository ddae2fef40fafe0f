package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
)

// Nombres de colección en el almacén de filas. La traducción de campos es el nombre JSON de cada entidad.
const (
	CollectionCultures      = "cultures"
	CollectionTransfers     = "culture_transfers"
	CollectionGrows         = "grows"
	CollectionPreparedSpawn = "prepared_spawn"
	CollectionItems         = "inventory_items"
	CollectionLots          = "inventory_lots"
	CollectionUsages        = "inventory_usage"
	CollectionLocations     = "locations"
	CollectionOutcomes      = "entity_outcomes"
	CollectionContamination = "contamination_details"
	CollectionAmendmentLog  = "data_amendment_log"
)

// Filter predicado de igualdad por campo; un Filter vacío selecciona todo.
type Filter map[string]any

// Patch campos a sobrescribir en una fila.
type Patch map[string]any

// Order criterio de orden para Select.
type Order struct {
	Field string
	Desc  bool
}

// Asc orden ascendente por field.
func Asc(field string) Order { return Order{Field: field} }

// Desc orden descendente por field.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Table contrato uniforme de una colección del almacén (DIP).
// Las implementaciones viven en infrastructure (memory, postgres).
type Table[T any] interface {
	Insert(ctx context.Context, id string, row *T) error
	// Get devuelve nil, nil si la fila no existe.
	Get(ctx context.Context, id string) (*T, error)
	// Update devuelve domain.ErrNotFound si la fila no existe.
	Update(ctx context.Context, id string, patch Patch) error
	// ConditionalUpdate aplica patch solo si la fila cumple where; devuelve filas afectadas.
	ConditionalUpdate(ctx context.Context, id string, patch Patch, where Filter) (int64, error)
	Delete(ctx context.Context, id string) error
	Select(ctx context.Context, where Filter, order ...Order) ([]*T, error)
}

// Tables agrupa las colecciones; dentro de TxRunner.Run quedan atadas a la transacción.
type Tables struct {
	Cultures      Table[entity.Culture]
	Transfers     Table[entity.CultureTransfer]
	Grows         Table[entity.Grow]
	PreparedSpawn Table[entity.PreparedSpawn]
	Items         Table[entity.InventoryItem]
	Lots          Table[entity.InventoryLot]
	Usages        Table[entity.InventoryUsage]
	Locations     Table[entity.Location]
	Outcomes      Table[entity.EntityOutcome]
	Contamination Table[entity.ContaminationDetails]
	AmendmentLog  Table[entity.DataAmendmentLogEntry]
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx Tables) error) error
}

// Store almacén de filas completo: colecciones fuera de transacción más el runner transaccional.
type Store interface {
	TxRunner
	Tables() Tables
	// Backend nombre del backend para logs ("memory", "postgres").
	Backend() string
	Close()
}

// PatchOf convierte una fila completa en Patch (sobrescritura de todos sus campos).
func PatchOf(row any) (Patch, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal patch: %w", err)
	}
	return p, nil
}
