package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

const (
	authHeaderPrefix = "Bearer "
	APIKeyHeader     = "X-API-Key"
	APIKeyQueryParam = "api_key"
)

func withUser(ctx context.Context, u *models.User, method catcommon.AuthMethod) context.Context {
	ctx = catcommon.WithUserContext(ctx, &catcommon.UserContext{
		UserID:     u.ID,
		Username:   u.Username,
		Role:       u.Role,
		AuthMethod: method,
	})
	logger := log.Ctx(ctx).With().Str("username", u.Username).Logger()
	return logger.WithContext(ctx)
}

func reject(w http.ResponseWriter, r *http.Request, err apperrors.Error) {
	log.Ctx(r.Context()).Debug().Str("reason", err.ErrorAll()).Msg("authentication failed")
	httpx.SendError(w, err)
}

// SessionMiddleware authenticates requests carrying a Bearer session token.
func (s *Service) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, authHeaderPrefix) {
			reject(w, r, ErrUnauthorized.Msg("missing session token"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, authHeaderPrefix))
		if token == "" {
			reject(w, r, ErrUnauthorized.Msg("missing session token"))
			return
		}
		u, err := s.AuthenticateToken(r.Context(), token)
		if err != nil {
			reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u, catcommon.AuthMethodSession)))
	})
}

// APIKeyMiddleware authenticates requests carrying an API key in the
// X-API-Key header or the api_key query parameter.
func (s *Service) APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			key = r.URL.Query().Get(APIKeyQueryParam)
		}
		u, err := s.AuthenticateAPIKey(r.Context(), key)
		if err != nil {
			reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u, catcommon.AuthMethodAPIKey)))
	})
}

// RequireAdmin rejects callers without the admin role. It must run after one
// of the authentication middlewares.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uc := catcommon.UserContextFromContext(r.Context())
		if uc == nil {
			reject(w, r, ErrUnauthorized)
			return
		}
		if uc.Role != models.RoleAdmin {
			reject(w, r, ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
