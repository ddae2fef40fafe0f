package cultivation_test

import (
	"testing"

	"github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func TestNextStage_RecorreElOrdenFijo(t *testing.T) {
	stage := entity.StageSpawning
	var visited []string
	for {
		next, ok := cultivation.NextStage(stage)
		if !ok {
			break
		}
		visited = append(visited, next)
		stage = next
	}
	assert.Equal(t, []string{
		entity.StageColonization, entity.StageFruiting, entity.StageHarvesting, entity.StageCompleted,
	}, visited)
}

func TestNextStage_TerminalesYDesconocidas(t *testing.T) {
	for _, s := range []string{entity.StageCompleted, entity.StageContaminated, entity.StageAborted, "unknown"} {
		_, ok := cultivation.NextStage(s)
		assert.False(t, ok, s)
	}
	assert.True(t, cultivation.IsTerminalStage(entity.StageAborted))
	assert.False(t, cultivation.IsTerminalStage(entity.StageHarvesting))
}
