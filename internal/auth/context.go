package auth

import (
	"context"

	"marketplace/internal/domain"
)

type ctxKey string

const (
	ctxKeyPrincipal ctxKey = "principal"
	ctxKeyResource  ctxKey = "resource"
	ctxKeyTeam      ctxKey = "team"
)

func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFrom(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(*domain.Principal)
	return p, ok && p != nil
}

func ResourceFrom(ctx context.Context) (*domain.Resource, bool) {
	r, ok := ctx.Value(ctxKeyResource).(*domain.Resource)
	return r, ok && r != nil
}

// TeamFrom returns the team owning the resource resolved by
// RequireResourceRole. It is absent for team-less resources.
func TeamFrom(ctx context.Context) (*domain.Team, bool) {
	t, ok := ctx.Value(ctxKeyTeam).(*domain.Team)
	return t, ok && t != nil
}
