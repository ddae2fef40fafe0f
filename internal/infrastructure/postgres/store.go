package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
)

var _ repository.Store = (*Store)(nil)

// collections todas las tablas JSONB del almacén.
var collections = []string{
	repository.CollectionCultures,
	repository.CollectionTransfers,
	repository.CollectionGrows,
	repository.CollectionPreparedSpawn,
	repository.CollectionItems,
	repository.CollectionLots,
	repository.CollectionUsages,
	repository.CollectionLocations,
	repository.CollectionOutcomes,
	repository.CollectionContamination,
	repository.CollectionAmendmentLog,
}

// Store almacén de filas sobre PostgreSQL: una tabla (id, data JSONB) por colección.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore construye el almacén con el pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Backend nombre del backend.
func (s *Store) Backend() string { return "postgres" }

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }

// EnsureSchema crea las tablas si no existen (no es una herramienta de migraciones).
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, name := range collections {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, name)
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("crear tabla %s: %w", name, err)
		}
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_data_gin ON %s USING GIN (data jsonb_path_ops)`, name, name)
		if _, err := s.pool.Exec(ctx, idx); err != nil {
			return fmt.Errorf("crear índice %s: %w", name, err)
		}
	}
	return nil
}

// Tables colecciones atadas al pool (fuera de transacción).
func (s *Store) Tables() repository.Tables {
	return tablesFor(s.pool)
}

// Run inicia una transacción, ejecuta fn con tablas atadas a la tx y hace Commit o Rollback.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Tables) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tablesFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit transaction: %w", domain.ErrPersistence, err)
	}
	return nil
}

func tablesFor(q Querier) repository.Tables {
	return repository.Tables{
		Cultures:      NewTable[entity.Culture](q, repository.CollectionCultures),
		Transfers:     NewTable[entity.CultureTransfer](q, repository.CollectionTransfers),
		Grows:         NewTable[entity.Grow](q, repository.CollectionGrows),
		PreparedSpawn: NewTable[entity.PreparedSpawn](q, repository.CollectionPreparedSpawn),
		Items:         NewTable[entity.InventoryItem](q, repository.CollectionItems),
		Lots:          NewTable[entity.InventoryLot](q, repository.CollectionLots),
		Usages:        NewTable[entity.InventoryUsage](q, repository.CollectionUsages),
		Locations:     NewTable[entity.Location](q, repository.CollectionLocations),
		Outcomes:      NewTable[entity.EntityOutcome](q, repository.CollectionOutcomes),
		Contamination: NewTable[entity.ContaminationDetails](q, repository.CollectionContamination),
		AmendmentLog:  NewTable[entity.DataAmendmentLogEntry](q, repository.CollectionAmendmentLog),
	}
}
