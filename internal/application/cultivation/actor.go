package cultivation

import (
	"context"
	"fmt"

	"github.com/jhoicas/cultivo-lab/internal/domain"
)

type actorKey struct{}

// WithActor asocia al contexto el usuario que ejecuta la operación (lo fija el middleware JWT).
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext devuelve el usuario del contexto o "".
func ActorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

func requireActor(ctx context.Context) (string, error) {
	actor := ActorFromContext(ctx)
	if actor == "" {
		return "", domain.ErrUnauthorized
	}
	return actor, nil
}

func authorize(actor, ownerID string) error {
	if ownerID != actor {
		return fmt.Errorf("%w: el registro pertenece a otro usuario", domain.ErrForbidden)
	}
	return nil
}
