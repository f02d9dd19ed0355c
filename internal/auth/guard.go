package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/handler/http/httpx"
)

type TokenResolver interface {
	Resolve(token string) (string, bool)
}

type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID string) (*domain.Principal, error)
}

// ResourceLoader returns the resource and, when it belongs to one, its team.
type ResourceLoader interface {
	LoadResourceWithTeam(ctx context.Context, id string) (*domain.Resource, *domain.Team, error)
}

type Guard struct {
	tokens     TokenResolver
	principals PrincipalLoader
	resources  ResourceLoader
	logger     *zap.Logger
}

func NewGuard(tokens TokenResolver, principals PrincipalLoader, resources ResourceLoader, logger *zap.Logger) *Guard {
	return &Guard{
		tokens:     tokens,
		principals: principals,
		resources:  resources,
		logger:     logger,
	}
}

func bearerTokenFromHeader(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.New("missing bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// Authenticate resolves the bearer token and stores the principal in the
// request context. Requests without a valid principal never reach next.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			httpx.WriteDomainError(w, domain.ErrUnauthenticated)
			return
		}
		userID, ok := g.tokens.Resolve(token)
		if !ok {
			httpx.WriteDomainError(w, domain.ErrUnauthenticated)
			return
		}
		principal, err := g.principals.LoadPrincipal(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				g.logger.Warn("Token resolves to unknown user", zap.String("user_id", userID))
				httpx.WriteDomainError(w, domain.ErrUnauthenticated)
				return
			}
			g.logger.Error("Failed to load principal", zap.String("user_id", userID), zap.Error(err))
			httpx.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireRole gates on the principal's global role. It must run after
// Authenticate.
func (g *Guard) RequireRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.WriteDomainError(w, domain.ErrUnauthenticated)
				return
			}
			if !principal.Role.AtLeast(min) {
				g.logger.Info("Role gate rejected request",
					zap.String("user_id", principal.ID),
					zap.String("role", string(principal.Role)),
					zap.String("required", string(min)),
				)
				httpx.WriteDomainError(w, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResourceRole loads the resource named by the URL parameter and
// applies CanActOnResource. The resource and its team are placed in the
// request context for the handler.
func (g *Guard) RequireResourceRole(param string, min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.WriteDomainError(w, domain.ErrUnauthenticated)
				return
			}
			resource, team, err := g.resources.LoadResourceWithTeam(r.Context(), chi.URLParam(r, param))
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					g.logger.Error("Failed to load resource for role gate", zap.Error(err))
				}
				httpx.WriteDomainError(w, err)
				return
			}
			if !CanActOnResource(principal, resource, min) {
				g.logger.Info("Resource role gate rejected request",
					zap.String("user_id", principal.ID),
					zap.String("resource_id", resource.ID),
					zap.String("required", string(min)),
				)
				httpx.WriteDomainError(w, domain.ErrForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyResource, resource)
			if team != nil {
				ctx = context.WithValue(ctx, ctxKeyTeam, team)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CanActOnResource passes when the global role meets min, when the role in
// the resource's owning team meets min, or when the principal owns the
// resource individually (an owner acts as admin on their own resource).
// A resource without a team grants no team-scoped capability to anyone.
func CanActOnResource(p *domain.Principal, res *domain.Resource, min domain.Role) bool {
	if p == nil || res == nil {
		return false
	}
	if p.Role.AtLeast(min) {
		return true
	}
	if res.TeamID != nil {
		if role, ok := p.TeamRole(*res.TeamID); ok && role.AtLeast(min) {
			return true
		}
	}
	return res.OwnerID != "" && res.OwnerID == p.ID && domain.RoleAdmin.AtLeast(min)
}
