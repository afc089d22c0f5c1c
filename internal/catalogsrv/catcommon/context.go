// Package catcommon holds request-scoped values shared by the catalog
// service packages.
package catcommon

import (
	"context"

	"github.com/google/uuid"
)

type ctxKeyType string

const (
	ctxUserContextKey ctxKeyType = "CatalogUserContext"
)

type AuthMethod string

const (
	AuthMethodSession AuthMethod = "session"
	AuthMethodAPIKey  AuthMethod = "api_key"
)

// UserContext is the authenticated caller of a request.
type UserContext struct {
	UserID     uuid.UUID
	Username   string
	Role       string
	AuthMethod AuthMethod
}

func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, ctxUserContextKey, uc)
}

func UserContextFromContext(ctx context.Context) *UserContext {
	if uc, ok := ctx.Value(ctxUserContextKey).(*UserContext); ok {
		return uc
	}
	return nil
}

// UsernameFromContext returns the authenticated username, or "" if the request
// is anonymous.
func UsernameFromContext(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.Username
	}
	return ""
}
