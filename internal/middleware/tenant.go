// Package middleware binds inbound HTTP requests to a tenant unit of work.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gosuda/tenancy/internal/tenant"
)

// Default places the tenant token is read from.
const (
	DefaultQueryParam = "tenant"
	DefaultHeader     = "X-Tenant-ID"
)

// TokenSource extracts a raw tenant token from a request. An empty result
// means the source has nothing to offer.
type TokenSource func(r *http.Request) string

func FromQuery(param string) TokenSource {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

func FromHeader(name string) TokenSource {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// Tenant opens a unit of work per request, binds the tenant named by the
// first non-empty source and ends the unit when the handler returns. With no
// sources it reads the "tenant" query parameter, then the X-Tenant-ID header.
func Tenant(resolver tenant.Resolver, sources ...TokenSource) func(http.Handler) http.Handler {
	if len(sources) == 0 {
		sources = []TokenSource{FromQuery(DefaultQueryParam), FromHeader(DefaultHeader)}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, unit := tenant.Begin(r.Context())
			defer unit.End()

			token := firstToken(r, sources)
			if token == "" {
				http.Error(w, `{"title":"Bad Request","status":400,"detail":"tenant identifier required"}`, http.StatusBadRequest)
				return
			}

			id, err := resolver.Resolve(ctx, token)
			switch {
			case errors.Is(err, tenant.ErrEmptyTenant):
				http.Error(w, `{"title":"Bad Request","status":400,"detail":"tenant identifier required"}`, http.StatusBadRequest)
				return
			case errors.Is(err, tenant.ErrUnknownTenant):
				http.Error(w, `{"title":"Bad Request","status":400,"detail":"unknown tenant"}`, http.StatusBadRequest)
				return
			case err != nil:
				zerolog.Ctx(ctx).Error().Err(err).Msg("tenant resolution failed")
				http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"tenant resolution failed"}`, http.StatusInternalServerError)
				return
			}

			if err := unit.Bind(id); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("tenant binding failed")
				http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"tenant binding failed"}`, http.StatusInternalServerError)
				return
			}

			logger := zerolog.Ctx(ctx).With().Str("tenant", id.String()).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

func firstToken(r *http.Request, sources []TokenSource) string {
	for _, src := range sources {
		if tok := strings.TrimSpace(src(r)); tok != "" {
			return tok
		}
	}
	return ""
}
