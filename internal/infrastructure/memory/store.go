// Package memory implementa el almacén de filas en memoria usado cuando no hay backend configurado
// y en los tests. Cada transacción anota el valor previo de las filas que toca y, si fn falla, revierte
// solo esas filas; las escrituras hechas fuera de la transacción se conservan.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
)

var _ repository.Store = (*Store)(nil)

// Operaciones sobre las que se puede inyectar un fallo (FailOn).
const (
	OpInsert            = "insert"
	OpUpdate            = "update"
	OpConditionalUpdate = "conditional_update"
	OpDelete            = "delete"
	OpSelect            = "select"
)

type collection struct {
	rows  map[string]json.RawMessage
	order []string // orden de inserción, estable para Select sin Order
}

type faultKey struct {
	collection string
	op         string
}

// Store almacén de filas en memoria (JSON por fila, igual que el backend JSONB).
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	data   map[string]*collection
	faults map[faultKey]error
}

// NewStore crea un almacén vacío con todas las colecciones.
func NewStore() *Store {
	s := &Store{
		data:   make(map[string]*collection),
		faults: make(map[faultKey]error),
	}
	for _, name := range []string{
		repository.CollectionCultures, repository.CollectionTransfers, repository.CollectionGrows,
		repository.CollectionPreparedSpawn, repository.CollectionItems, repository.CollectionLots,
		repository.CollectionUsages, repository.CollectionLocations, repository.CollectionOutcomes,
		repository.CollectionContamination, repository.CollectionAmendmentLog,
	} {
		s.data[name] = &collection{rows: make(map[string]json.RawMessage)}
	}
	return s
}

// Backend nombre del backend.
func (s *Store) Backend() string { return "memory" }

// Close no libera nada; existe para cumplir repository.Store.
func (s *Store) Close() {}

// FailOn hace que la próxima operación op sobre collection devuelva err (una sola vez).
// Permite probar el rollback de los casos de uso.
func (s *Store) FailOn(collectionName, op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{collectionName, op}] = err
}

// Count número de filas de una colección.
func (s *Store) Count(collectionName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[collectionName].rows)
}

// Tables colecciones fuera de transacción.
func (s *Store) Tables() repository.Tables {
	return s.tables(nil)
}

func (s *Store) tables(log *undoLog) repository.Tables {
	return repository.Tables{
		Cultures:      newTable[entity.Culture](s, repository.CollectionCultures, log),
		Transfers:     newTable[entity.CultureTransfer](s, repository.CollectionTransfers, log),
		Grows:         newTable[entity.Grow](s, repository.CollectionGrows, log),
		PreparedSpawn: newTable[entity.PreparedSpawn](s, repository.CollectionPreparedSpawn, log),
		Items:         newTable[entity.InventoryItem](s, repository.CollectionItems, log),
		Lots:          newTable[entity.InventoryLot](s, repository.CollectionLots, log),
		Usages:        newTable[entity.InventoryUsage](s, repository.CollectionUsages, log),
		Locations:     newTable[entity.Location](s, repository.CollectionLocations, log),
		Outcomes:      newTable[entity.EntityOutcome](s, repository.CollectionOutcomes, log),
		Contamination: newTable[entity.ContaminationDetails](s, repository.CollectionContamination, log),
		AmendmentLog:  newTable[entity.DataAmendmentLogEntry](s, repository.CollectionAmendmentLog, log),
	}
}

// Run ejecuta fn con tablas que anotan cada escritura; si fn falla se revierten en orden inverso (Rollback).
// Las transacciones se serializan entre sí.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(s.tables(log)); err != nil {
		s.rollback(log)
		return err
	}
	return nil
}

// undo estado de una fila antes de que la transacción la tocara.
type undo struct {
	collection string
	id         string
	prev       json.RawMessage
	existed    bool
	pos        int // posición en order antes de un Delete
}

type undoLog struct {
	entries []undo
}

// record debe llamarse con mu tomado, antes de modificar la fila.
func (l *undoLog) record(c *collection, name, id string) {
	if l == nil {
		return
	}
	u := undo{collection: name, id: id, pos: -1}
	if raw, ok := c.rows[id]; ok {
		u.prev = raw
		u.existed = true
		u.pos = indexOf(c.order, id)
	}
	l.entries = append(l.entries, u)
}

func (s *Store) rollback(log *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(log.entries) - 1; i >= 0; i-- {
		u := log.entries[i]
		c := s.data[u.collection]
		if !u.existed {
			delete(c.rows, u.id)
			c.order = removeID(c.order, u.id)
			continue
		}
		if _, ok := c.rows[u.id]; !ok {
			c.order = insertAt(c.order, u.pos, u.id)
		}
		c.rows[u.id] = u.prev
	}
}

func indexOf(order []string, id string) int {
	for i, k := range order {
		if k == id {
			return i
		}
	}
	return -1
}

func removeID(order []string, id string) []string {
	if i := indexOf(order, id); i >= 0 {
		return append(order[:i], order[i+1:]...)
	}
	return order
}

func insertAt(order []string, pos int, id string) []string {
	if pos < 0 || pos > len(order) {
		return append(order, id)
	}
	order = append(order, "")
	copy(order[pos+1:], order[pos:])
	order[pos] = id
	return order
}

// takeFault consume el fallo inyectado para (collection, op). Debe llamarse con mu tomado.
func (s *Store) takeFault(collectionName, op string) error {
	key := faultKey{collectionName, op}
	err, ok := s.faults[key]
	if !ok {
		return nil
	}
	delete(s.faults, key)
	return fmt.Errorf("%w: %s %s: %w", domain.ErrPersistence, op, collectionName, err)
}
