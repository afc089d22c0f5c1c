package auth

import (
	"net/http"

	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// Base auth error
var (
	ErrAuth apperrors.Error = apperrors.New("auth error").SetStatusCode(http.StatusInternalServerError)
)

// Validation errors
var (
	ErrInvalidRequest apperrors.Error = ErrAuth.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrUserExists     apperrors.Error = ErrAuth.New("username or email already registered").SetStatusCode(http.StatusConflict)
)

// Authentication and authorization errors
var (
	ErrUnauthorized       apperrors.Error = ErrAuth.New("unauthorized access").SetStatusCode(http.StatusUnauthorized)
	ErrInvalidCredentials apperrors.Error = ErrUnauthorized.New("invalid username or password")
	ErrInvalidToken       apperrors.Error = ErrUnauthorized.New("invalid or expired session")
	ErrInvalidAPIKey      apperrors.Error = ErrUnauthorized.New("invalid API key")
	ErrAccountNotActive   apperrors.Error = ErrAuth.New("account is not active").SetStatusCode(http.StatusForbidden)
	ErrAdminRequired      apperrors.Error = ErrAuth.New("administrator access required").SetStatusCode(http.StatusForbidden)
)

// Internal errors
var (
	ErrTokenGeneration  apperrors.Error = ErrAuth.New("failed to generate token")
	ErrPasswordHashing  apperrors.Error = ErrAuth.New("failed to hash password")
	ErrKeyGeneration    apperrors.Error = ErrAuth.New("failed to generate API key")
	ErrUnableToLoadUser apperrors.Error = ErrAuth.New("unable to load user")
	ErrUnableToSaveUser apperrors.Error = ErrAuth.New("unable to save user")
)
