// Package auth registers users, issues session tokens and API keys, and
// authenticates requests with either of them.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/config"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/catalogsrv/schemavalidator"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// Service holds the user store and the session token manager.
type Service struct {
	users    db.UserManager
	tokens   *TokenManager
	activity *datasets.ActivityLog
	now      func() time.Time
}

func NewService(users db.UserManager, tokens *TokenManager, activity *datasets.ActivityLog) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		activity: activity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignupRequest is the body of a registration request.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,noSpaces"`
	Email    string `json:"email" validate:"required,email,max=256"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Signup registers a new user. New accounts are unverified until an
// administrator approves them.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*models.User, apperrors.Error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := schemavalidator.V().Struct(req); err != nil {
		return nil, ErrInvalidRequest.Msg(strings.Join(schemavalidator.ValidationErrors(err), "; "))
	}
	return s.createUser(ctx, req, models.RoleUser, models.StatusUnverified)
}

func (s *Service) createUser(ctx context.Context, req SignupRequest, role, status string) (*models.User, apperrors.Error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, ErrPasswordHashing.Err(err)
	}
	now := s.now()
	u := &models.User{
		ID:           catcommon.NewID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if aerr := s.users.CreateUser(ctx, u); aerr != nil {
		if errors.Is(aerr, dberror.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, ErrUnableToSaveUser.Err(aerr)
	}
	log.Ctx(ctx).Info().Str("username", u.Username).Str("role", role).Msg("registered user")
	return u, nil
}

// Login checks the password of username and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, apperrors.Error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrUnableToLoadUser.Err(err)
	}
	if !VerifyPassword(password, u.PasswordHash) {
		log.Ctx(ctx).Info().Str("username", u.Username).Msg("failed login")
		return nil, ErrInvalidCredentials
	}
	if !u.CanUseAPI() {
		return nil, ErrAccountNotActive
	}

	token, expiry, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u.LastLogin = &now
	if err := s.users.UpdateUser(ctx, u); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("username", u.Username).Msg("unable to record last login")
	}
	return &LoginResult{Token: token, ExpiresAt: expiry, User: u}, nil
}

// AuthenticateToken resolves a session token to its user. The user's status is
// checked again so deactivation takes effect before the token expires.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*models.User, apperrors.Error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, perr := claims.UserID()
	if perr != nil {
		return nil, ErrInvalidToken.Err(perr)
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, ErrUnableToLoadUser.Err(err)
	}
	if !u.CanUseAPI() {
		return nil, ErrAccountNotActive
	}
	return u, nil
}

// AuthenticateAPIKey resolves an API key to its user.
func (s *Service) AuthenticateAPIKey(ctx context.Context, key string) (*models.User, apperrors.Error) {
	if key == "" {
		return nil, ErrInvalidAPIKey.Msg("API key is required")
	}
	u, err := s.users.GetUserByAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, ErrUnableToLoadUser.Err(err)
	}
	if !u.CanUseAPI() {
		return nil, ErrAccountNotActive
	}
	return u, nil
}

// GenerateAPIKey creates or replaces the API key of userID.
func (s *Service) GenerateAPIKey(ctx context.Context, userID uuid.UUID) (string, apperrors.Error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	key, kerr := catcommon.NewAPIKey()
	if kerr != nil {
		return "", ErrKeyGeneration.Err(kerr)
	}
	u.APIKey = key
	u.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return "", ErrUnableToSaveUser.Err(err)
	}
	s.activity.Record(ctx, u.Username, datasets.ActivityAPIKeyGenerated, "Generated API key", nil, nil)
	return key, nil
}

// RevokeAPIKey removes the API key of userID.
func (s *Service) RevokeAPIKey(ctx context.Context, userID uuid.UUID) apperrors.Error {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.APIKey == "" {
		return nil
	}
	u.APIKey = ""
	u.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return ErrUnableToSaveUser.Err(err)
	}
	s.activity.Record(ctx, u.Username, datasets.ActivityAPIKeyRevoked, "Revoked API key", nil, nil)
	return nil
}

// EnsureAdmin creates the configured administrator if no user with that
// username exists. An empty configuration is a no-op.
func (s *Service) EnsureAdmin(ctx context.Context, cfg config.BootstrapAdminConfig) apperrors.Error {
	if cfg.Username == "" {
		return nil
	}
	_, err := s.users.GetUserByUsername(ctx, cfg.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, dberror.ErrNotFound) {
		return ErrUnableToLoadUser.Err(err)
	}
	req := SignupRequest{Username: cfg.Username, Email: cfg.Email, Password: cfg.Password}
	if verr := schemavalidator.V().Struct(req); verr != nil {
		return ErrInvalidRequest.Msg("bootstrap admin: " + strings.Join(schemavalidator.ValidationErrors(verr), "; "))
	}
	_, err = s.createUser(ctx, req, models.RoleAdmin, models.StatusActive)
	return err
}

func (s *Service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, apperrors.Error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrUnauthorized.Msg("user not found")
		}
		return nil, ErrUnableToLoadUser.Err(err)
	}
	return u, nil
}
