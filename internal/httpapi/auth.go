package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hamzah/kharcha/pkg/authn"
)

type contextKey int

const ownerIDKey contextKey = iota

// OwnerFromContext extracts the authenticated owner id from the request
// context. Zero means the request was not authenticated.
func OwnerFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(ownerIDKey).(int64); ok {
		return v
	}
	return 0
}

// requireAuth resolves the bearer token and injects the owner id into the
// request context. Everything behind it can trust OwnerFromContext.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		ownerID, err := h.tokens.Resolve(r.Context(), token)
		if errors.Is(err, authn.ErrInvalidToken) {
			Error(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Token resolution failed")
			Error(w, http.StatusInternalServerError, "authentication unavailable")
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
