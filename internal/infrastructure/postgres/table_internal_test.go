package postgres

import (
	"testing"

	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderClause(t *testing.T) {
	got, err := orderClause([]repository.Order{repository.Asc("version")})
	require.NoError(t, err)
	assert.Equal(t, "data->'version', created_at", got)

	got, err = orderClause([]repository.Order{repository.Desc("created_at")})
	require.NoError(t, err)
	assert.Equal(t, "(data->>'created_at')::timestamptz DESC, created_at", got)

	got, err = orderClause(nil)
	require.NoError(t, err)
	assert.Equal(t, "created_at", got)

	_, err = orderClause([]repository.Order{{Field: "x; DROP TABLE cultures"}})
	assert.Error(t, err, "no se interpolan nombres arbitrarios")
}

func TestFilterJSON(t *testing.T) {
	got, err := filterJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = filterJSON(repository.Filter{"is_archived": false})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_archived": false}`, got)
}
