// Package admin lets administrators review and approve user accounts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

type Service struct {
	users    db.UserManager
	activity *datasets.ActivityLog
	now      func() time.Time
}

func NewService(users db.UserManager, activity *datasets.ActivityLog) *Service {
	return &Service{
		users:    users,
		activity: activity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Users lists accounts, optionally restricted to one status.
func (s *Service) Users(ctx context.Context, status string) ([]*models.User, apperrors.Error) {
	if status != "" && !models.ValidUserStatus(status) {
		return nil, ErrInvalidStatus.Msg(fmt.Sprintf("invalid status %q", status))
	}
	users, err := s.users.ListUsers(ctx, models.UserQuery{Status: status})
	if err != nil {
		return nil, ErrUnableToLoadUser.Err(err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// SetStatus changes the status of a non-admin account.
func (s *Service) SetStatus(ctx context.Context, actor string, id uuid.UUID, status string) (*models.User, apperrors.Error) {
	if !models.ValidUserStatus(status) {
		return nil, ErrInvalidStatus.Msg(fmt.Sprintf("invalid status %q", status))
	}
	u, err := s.update(ctx, id, status)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("target", u.Username).Str("status", status).Msg("user status changed")
	s.activity.Record(ctx, actor, datasets.ActivityUserStatusUpdate,
		fmt.Sprintf("Changed status of user '%s' to %s", u.Username, status), nil, nil)
	return u, nil
}

// Approve activates a pending account.
func (s *Service) Approve(ctx context.Context, actor string, id uuid.UUID) (*models.User, apperrors.Error) {
	u, err := s.update(ctx, id, models.StatusActive)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actor, datasets.ActivityUserApproved,
		fmt.Sprintf("Approved user '%s'", u.Username), nil, nil)
	return u, nil
}

func (s *Service) update(ctx context.Context, id uuid.UUID, status string) (*models.User, apperrors.Error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrUnableToLoadUser.Err(err)
	}
	if u.IsAdmin() {
		return nil, ErrAdminTarget
	}
	if u.Status == status {
		return u, nil
	}
	u.Status = status
	u.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, ErrUnableToSaveUser.Err(err)
	}
	return u, nil
}
