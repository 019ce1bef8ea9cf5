package globals

import (
	"context"
	"ticketscout/internal/adapter"
	"ticketscout/internal/components/ratelimit"
	"ticketscout/internal/config"
)

type key struct{}

type Value struct {
	Config  config.Config
	Deps    adapter.Deps
	Limiter *ratelimit.Limiter
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
