package memstore

import (
	"context"

	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

func (s *Store) CreateActivity(ctx context.Context, a *models.Activity) apperrors.Error {
	if a == nil {
		return dberror.ErrInvalidInput.Msg("activity is required")
	}
	c := *a
	s.mu.Lock()
	s.activities = append(s.activities, &c)
	s.mu.Unlock()
	return nil
}

// ListActivities returns matching entries newest first.
func (s *Store) ListActivities(ctx context.Context, q models.ActivityQuery) ([]*models.Activity, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Activity
	for i := len(s.activities) - 1; i >= 0; i-- {
		a := s.activities[i]
		if q.Username != "" && a.Username != q.Username {
			continue
		}
		c := *a
		result = append(result, &c)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, nil
}
