package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id in context. Authorization is
// the caller's concern; the workflows only record who acted.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actor, _ := ctx.Value(actorContextKey{}).(int64)
	return actor
}
