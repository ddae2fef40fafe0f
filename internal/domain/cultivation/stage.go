package cultivation

import "github.com/jhoicas/cultivo-lab/internal/domain/entity"

// stageOrder orden fijo de avance; contaminated y aborted son salidas laterales.
var stageOrder = []string{
	entity.StageSpawning,
	entity.StageColonization,
	entity.StageFruiting,
	entity.StageHarvesting,
	entity.StageCompleted,
}

// StageOrder devuelve una copia del orden de etapas.
func StageOrder() []string {
	return append([]string(nil), stageOrder...)
}

// IsTerminalStage completed, contaminated y aborted no admiten más avances.
func IsTerminalStage(stage string) bool {
	switch stage {
	case entity.StageCompleted, entity.StageContaminated, entity.StageAborted:
		return true
	}
	return false
}

// NextStage siguiente etapa del orden fijo; false si stage es terminal o desconocida.
func NextStage(stage string) (string, bool) {
	if IsTerminalStage(stage) {
		return "", false
	}
	for i, s := range stageOrder {
		if s == stage && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}
