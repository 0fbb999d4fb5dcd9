package api

import (
	"context"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
)

type ctxKey string

const (
	ctxKeyActor   ctxKey = "actor"
	ctxKeyLogSlot ctxKey = "log_actor"
)

// WithActor stores a on ctx. When the request logger is mounted upstream it
// also records a so the access log line can name the caller.
func WithActor(ctx context.Context, a identity.Actor) context.Context {
	if slot, ok := ctx.Value(ctxKeyLogSlot).(*identity.Actor); ok {
		*slot = a
	}
	return context.WithValue(ctx, ctxKeyActor, a)
}

func ActorFromContext(ctx context.Context) (identity.Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(identity.Actor)
	return a, ok
}
