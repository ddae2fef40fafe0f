package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
)

// table implementación genérica de repository.Table sobre una colección del Store.
// Dentro de una transacción undo anota el valor previo de cada fila escrita.
type table[T any] struct {
	store *Store
	name  string
	undo  *undoLog
}

func newTable[T any](s *Store, name string, undo *undoLog) *table[T] {
	return &table[T]{store: s, name: name, undo: undo}
}

func (t *table[T]) coll() *collection { return t.store.data[t.name] }

// Insert agrega la fila; un id repetido es un error de persistencia (clave primaria).
func (t *table[T]) Insert(ctx context.Context, id string, row *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %w", domain.ErrPersistence, t.name, err)
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.takeFault(t.name, OpInsert); err != nil {
		return err
	}
	c := t.coll()
	if _, exists := c.rows[id]; exists {
		return fmt.Errorf("%w: %s: id duplicado %s", domain.ErrPersistence, t.name, id)
	}
	t.undo.record(c, t.name, id)
	c.rows[id] = raw
	c.order = append(c.order, id)
	return nil
}

// Get obtiene una fila por id; nil, nil si no existe.
func (t *table[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	raw, ok := t.coll().rows[id]
	t.store.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return t.decode(raw)
}

// Update sobrescribe los campos de patch.
func (t *table[T]) Update(ctx context.Context, id string, patch repository.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.takeFault(t.name, OpUpdate); err != nil {
		return err
	}
	raw, ok := t.coll().rows[id]
	if !ok {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, t.name, id)
	}
	return t.applyPatch(id, raw, patch)
}

// ConditionalUpdate aplica patch solo si la fila cumple where (predicado de igualdad).
func (t *table[T]) ConditionalUpdate(ctx context.Context, id string, patch repository.Patch, where repository.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.takeFault(t.name, OpConditionalUpdate); err != nil {
		return 0, err
	}
	raw, ok := t.coll().rows[id]
	if !ok {
		return 0, nil
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
	}
	if !matches(fields, where) {
		return 0, nil
	}
	if err := t.applyPatch(id, raw, patch); err != nil {
		return 0, err
	}
	return 1, nil
}

// Delete elimina la fila (no falla si no existe).
func (t *table[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.takeFault(t.name, OpDelete); err != nil {
		return err
	}
	c := t.coll()
	if _, ok := c.rows[id]; !ok {
		return nil
	}
	t.undo.record(c, t.name, id)
	delete(c.rows, id)
	c.order = removeID(c.order, id)
	return nil
}

// Select filas que cumplen where, ordenadas por order (y luego por orden de inserción).
func (t *table[T]) Select(ctx context.Context, where repository.Filter, order ...repository.Order) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	if err := t.store.takeFault(t.name, OpSelect); err != nil {
		t.store.mu.Unlock()
		return nil, err
	}
	c := t.coll()
	type candidate struct {
		raw    json.RawMessage
		fields map[string]any
	}
	var found []candidate
	for _, id := range c.order {
		raw := c.rows[id]
		fields, err := decodeFields(raw)
		if err != nil {
			t.store.mu.Unlock()
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
		}
		if matches(fields, where) {
			found = append(found, candidate{raw: raw, fields: fields})
		}
	}
	t.store.mu.Unlock()

	if len(order) > 0 {
		sort.SliceStable(found, func(i, j int) bool {
			for _, o := range order {
				cmp := compareValues(found[i].fields[o.Field], found[j].fields[o.Field])
				if cmp == 0 {
					continue
				}
				if o.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	out := make([]*T, 0, len(found))
	for _, f := range found {
		row, err := t.decode(f.raw)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// applyPatch debe llamarse con mu tomado.
func (t *table[T]) applyPatch(id string, raw json.RawMessage, patch repository.Patch) error {
	fields, err := decodeFields(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
	}
	normalized, err := normalize(patch)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
	}
	for k, v := range normalized {
		fields[k] = v
	}
	updated, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
	}
	t.undo.record(t.coll(), t.name, id)
	t.coll().rows[id] = updated
	return nil
}

func (t *table[T]) decode(raw json.RawMessage) (*T, error) {
	var row T
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrPersistence, t.name, err)
	}
	return &row, nil
}

func decodeFields(raw json.RawMessage) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// normalize pasa los valores por JSON para compararlos con lo almacenado (string, float64, bool, nil).
func normalize(m map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matches semántica de contención: cada campo del filtro debe ser igual al almacenado.
// Un campo ausente en la fila equivale a su valor cero (omitempty).
func matches(fields map[string]any, where repository.Filter) bool {
	if len(where) == 0 {
		return true
	}
	want, err := normalize(where)
	if err != nil {
		return false
	}
	for k, v := range want {
		got, ok := fields[k]
		if !ok {
			if isZero(v) {
				continue
			}
			return false
		}
		if !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}

// compareValues ordena nil primero, luego números, instantes RFC3339 y cadenas.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			ta, errA := time.Parse(time.RFC3339Nano, x)
			tb, errB := time.Parse(time.RFC3339Nano, y)
			if errA == nil && errB == nil {
				return ta.Compare(tb)
			}
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return 0
}
