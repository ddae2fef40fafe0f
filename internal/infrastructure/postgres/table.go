package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
)

// fieldName nombres de campo JSON admitidos en ORDER BY (se interpolan en el SQL).
var fieldName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Table implementación genérica de repository.Table sobre una tabla (id TEXT, data JSONB).
// Los filtros usan contención JSONB (data @> filtro), que equivale a igualdad por campo.
type Table[T any] struct {
	q    Querier
	name string
}

// NewTable construye el adaptador. Pasar pool o tx (Querier).
func NewTable[T any](q Querier, name string) *Table[T] {
	return &Table[T]{q: q, name: name}
}

// Insert persiste una fila nueva.
func (t *Table[T]) Insert(ctx context.Context, id string, row *T) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %w", domain.ErrPersistence, t.name, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, data, created_at, updated_at) VALUES ($1, $2::jsonb, now(), now())`, t.name)
	if _, err := t.q.Exec(ctx, query, id, string(data)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s: id duplicado %s", domain.ErrPersistence, t.name, id)
		}
		return fmt.Errorf("%w: insert %s: %w", domain.ErrPersistence, t.name, err)
	}
	return nil
}

// Get obtiene una fila por ID; nil, nil si no existe.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, t.name)
	var data []byte
	if err := t.q.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, t.name, err)
	}
	return t.decode(data)
}

// Update mezcla patch sobre el documento (data || patch).
func (t *Table[T]) Update(ctx context.Context, id string, patch repository.Patch) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("%w: marshal patch %s: %w", domain.ErrPersistence, t.name, err)
	}
	query := fmt.Sprintf(`UPDATE %s SET data = data || $2::jsonb, updated_at = now() WHERE id = $1`, t.name)
	cmd, err := t.q.Exec(ctx, query, id, string(raw))
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", domain.ErrPersistence, t.name, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, t.name, id)
	}
	return nil
}

// ConditionalUpdate actualiza solo si el documento contiene where; devuelve filas afectadas.
func (t *Table[T]) ConditionalUpdate(ctx context.Context, id string, patch repository.Patch, where repository.Filter) (int64, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal patch %s: %w", domain.ErrPersistence, t.name, err)
	}
	cond, err := filterJSON(where)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
	}
	query := fmt.Sprintf(`UPDATE %s SET data = data || $2::jsonb, updated_at = now() WHERE id = $1 AND data @> $3::jsonb`, t.name)
	cmd, err := t.q.Exec(ctx, query, id, string(raw), cond)
	if err != nil {
		return 0, fmt.Errorf("%w: conditional update %s: %w", domain.ErrPersistence, t.name, err)
	}
	return cmd.RowsAffected(), nil
}

// Delete elimina una fila por ID.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.name)
	if _, err := t.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrPersistence, t.name, err)
	}
	return nil
}

// Select lista filas que contienen where, ordenadas por los campos indicados.
func (t *Table[T]) Select(ctx context.Context, where repository.Filter, order ...repository.Order) ([]*T, error) {
	cond, err := filterJSON(where)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, t.name, err)
	}
	orderBy, err := orderClause(order)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, t.name, err)
	}
	query := fmt.Sprintf(`SELECT data FROM %s WHERE data @> $1::jsonb ORDER BY %s`, t.name, orderBy)
	rows, err := t.q.Query(ctx, query, cond)
	if err != nil {
		return nil, fmt.Errorf("%w: select %s: %w", domain.ErrPersistence, t.name, err)
	}
	defer rows.Close()
	var list []*T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrPersistence, t.name, err)
		}
		row, err := t.decode(data)
		if err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows %s: %w", domain.ErrPersistence, t.name, err)
	}
	return list, nil
}

func (t *Table[T]) decode(data []byte) (*T, error) {
	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrPersistence, t.name, err)
	}
	return &row, nil
}

func filterJSON(where repository.Filter) (string, error) {
	if len(where) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(where)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// orderClause traduce Order a SQL; los instantes (*_at, valid_from/valid_to) se ordenan como timestamptz.
// created_at de la fila desempata para que el orden sea estable.
func orderClause(order []repository.Order) (string, error) {
	parts := make([]string, 0, len(order)+1)
	for _, o := range order {
		if !fieldName.MatchString(o.Field) {
			return "", fmt.Errorf("campo de orden inválido %q", o.Field)
		}
		expr := fmt.Sprintf("data->'%s'", o.Field)
		if strings.HasSuffix(o.Field, "_at") || strings.HasPrefix(o.Field, "valid_") || o.Field == "date" {
			expr = fmt.Sprintf("(data->>'%s')::timestamptz", o.Field)
		}
		if o.Desc {
			expr += " DESC"
		}
		parts = append(parts, expr)
	}
	parts = append(parts, "created_at")
	return strings.Join(parts, ", "), nil
}
