package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// conflict reports a uniqueness violation of u against the other stored users.
// Callers hold s.mu.
func (s *Store) conflict(u *models.User) apperrors.Error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		switch {
		case other.Username == u.Username:
			return dberror.ErrAlreadyExists.Msg("username already exists")
		case other.Email == u.Email:
			return dberror.ErrAlreadyExists.Msg("email already exists")
		case u.APIKey != "" && other.APIKey == u.APIKey:
			return dberror.ErrAlreadyExists.Msg("api key already in use")
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) apperrors.Error {
	if u == nil || u.ID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return dberror.ErrAlreadyExists.Msg("user already exists")
	}
	if err := s.conflict(u); err != nil {
		return err
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) findUser(match func(*models.User) bool) (*models.User, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("user not found")
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, apperrors.Error) {
	return s.findUser(func(u *models.User) bool { return u.ID == id })
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, apperrors.Error) {
	return s.findUser(func(u *models.User) bool { return u.Username == username })
}

func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, apperrors.Error) {
	if apiKey == "" {
		return nil, dberror.ErrNotFound.Msg("user not found")
	}
	return s.findUser(func(u *models.User) bool { return u.APIKey == apiKey })
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return dberror.ErrNotFound.Msg("user not found")
	}
	if err := s.conflict(u); err != nil {
		return err
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) ListUsers(ctx context.Context, q models.UserQuery) ([]*models.User, apperrors.Error) {
	s.mu.RLock()
	var users []*models.User
	for _, u := range s.users {
		if q.Status == "" || u.Status == q.Status {
			users = append(users, u.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}
