// Package memstore is an in-memory metadata store used for development and
// tests. Every read and write copies records so callers never share state with
// the store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
	"golang.org/x/text/cases"
)

type txCtxKey struct{}

type Store struct {
	mu         sync.RWMutex
	txMu       sync.Mutex
	datasets   map[uuid.UUID]*models.Dataset
	users      map[uuid.UUID]*models.User
	activities []*models.Activity
}

func New() *Store {
	return &Store{
		datasets: make(map[uuid.UUID]*models.Dataset),
		users:    make(map[uuid.UUID]*models.User),
	}
}

// RunInTx serializes transactional callers and restores the dataset records if
// fn fails. Writes from outside a transaction are not isolated from it.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txCtxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshotDatasets()
	if err := fn(context.WithValue(ctx, txCtxKey{}, true)); err != nil {
		s.mu.Lock()
		s.datasets = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) snapshotDatasets() map[uuid.UUID]*models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := make(map[uuid.UUID]*models.Dataset, len(s.datasets))
	for id, d := range s.datasets {
		c[id] = d.Clone()
	}
	return c
}

func (s *Store) Close() {}

func (s *Store) CreateDataset(ctx context.Context, d *models.Dataset) apperrors.Error {
	if d == nil || d.ID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("dataset id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[d.ID]; ok {
		return dberror.ErrAlreadyExists.Msg("dataset already exists")
	}
	s.datasets[d.ID] = d.Clone()
	return nil
}

func (s *Store) GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("dataset not found")
	}
	return d.Clone(), nil
}

func (s *Store) ReplaceDataset(ctx context.Context, d *models.Dataset) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[d.ID]; !ok {
		return dberror.ErrNotFound.Msg("dataset not found")
	}
	s.datasets[d.ID] = d.Clone()
	return nil
}

func (s *Store) UpsertDataset(ctx context.Context, d *models.Dataset) apperrors.Error {
	if d == nil || d.ID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("dataset id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[d.ID] = d.Clone()
	return nil
}

func matchDataset(d *models.Dataset, q *models.DatasetQuery, ids map[uuid.UUID]bool, creators map[string]bool) bool {
	if ids != nil && !ids[d.ID] {
		return false
	}
	if q.Name != "" && d.Name != q.Name {
		return false
	}
	if q.BaseName != "" && d.BaseName != q.BaseName {
		return false
	}
	if q.Deleted != nil && d.IsDeleted != *q.Deleted {
		return false
	}
	if q.Production != nil && d.IsProduction != *q.Production {
		return false
	}
	if creators != nil && !creators[cases.Fold().String(d.CreatedBy)] {
		return false
	}
	if q.CreatedAfter != nil && d.CreatedAt.Before(*q.CreatedAfter) {
		return false
	}
	return true
}

func (s *Store) QueryDatasets(ctx context.Context, q models.DatasetQuery) ([]*models.Dataset, apperrors.Error) {
	var ids map[uuid.UUID]bool
	if len(q.IDs) > 0 {
		ids = make(map[uuid.UUID]bool, len(q.IDs))
		for _, id := range q.IDs {
			ids[id] = true
		}
	}
	var creators map[string]bool
	if len(q.CreatedBy) > 0 {
		creators = make(map[string]bool, len(q.CreatedBy))
		for _, c := range q.CreatedBy {
			creators[cases.Fold().String(c)] = true
		}
	}

	s.mu.RLock()
	var result []*models.Dataset
	for _, d := range s.datasets {
		if matchDataset(d, &q, ids, creators) {
			result = append(result, d.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if q.NewestFirst {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *Store) MaxVersion(ctx context.Context, baseName string) (int, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxVersion := 0
	for _, d := range s.datasets {
		if d.BaseName == baseName && d.Version > maxVersion {
			maxVersion = d.Version
		}
	}
	return maxVersion, nil
}
