// Package datasets owns the dataset versioning and lineage rules, the search
// mini-language, file attachment and the activity log.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/blobstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/db"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/catalogsrv/schemavalidator"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

const DefaultMaxLineageDepth = 1000

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	MaxLineageDepth int
	Now             func() time.Time
}

// Engine is the single entry point for dataset operations. It holds no state
// besides its collaborators and is safe for concurrent use.
type Engine struct {
	store    db.DB_
	blobs    blobstore.Store
	activity *ActivityLog
	maxDepth int
	now      func() time.Time
}

// NewEngine creates an Engine over the given metadata and object stores.
func NewEngine(store db.DB_, blobs blobstore.Store, opts Options) *Engine {
	if opts.MaxLineageDepth <= 0 {
		opts.MaxLineageDepth = DefaultMaxLineageDepth
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		store:    store,
		blobs:    blobs,
		activity: NewActivityLog(store, opts.Now),
		maxDepth: opts.MaxLineageDepth,
		now:      opts.Now,
	}
}

// Activities returns the activity log the engine writes to.
func (e *Engine) Activities() *ActivityLog {
	return e.activity
}

// CreateParams describe a new dataset record. A nil ParentID starts a new
// family; otherwise the record becomes the next version of the parent's family.
type CreateParams struct {
	Name        string
	Description string
	Tags        []string
	CreatedBy   string
	ParentID    *uuid.UUID
	BaseName    string
}

// Create persists a new dataset record and returns it.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*models.Dataset, apperrors.Error) {
	if strings.TrimSpace(p.CreatedBy) == "" {
		return nil, ErrInvalidRequest.Msg("creator is required")
	}

	d := &models.Dataset{
		ID:          catcommon.NewID(),
		Description: strings.TrimSpace(p.Description),
		Tags:        NormalizeTags(p.Tags),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   e.now(),
		Files:       []models.FileInfo{},
	}

	if p.ParentID == nil {
		name := strings.TrimSpace(p.Name)
		if v := schemavalidator.NameViolation(name); v != "" {
			return nil, ErrInvalidName.Msg(v)
		}
		existing, err := e.store.QueryDatasets(ctx, models.DatasetQuery{
			Name:    name,
			Deleted: models.BoolPtr(false),
			Limit:   1,
		})
		if err != nil {
			return nil, ErrUnableToLoad.Err(err)
		}
		if len(existing) > 0 {
			return nil, ErrNameConflict.Msg(fmt.Sprintf("a dataset named '%s' already exists", name))
		}
		d.Name = name
		d.BaseName = name
		d.Version = 1
	} else {
		parent, err := e.store.GetDataset(ctx, *p.ParentID)
		if err != nil {
			if errors.Is(err, dberror.ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, ErrUnableToLoad.Err(err)
		}
		baseName := p.BaseName
		if baseName == "" {
			baseName = parent.BaseName
		} else if baseName != parent.BaseName {
			return nil, ErrInvalidRequest.Msg("base name does not match the parent dataset")
		}
		// Read-then-write: concurrent creates in one family may pick the same
		// version. The store does not enforce (base_name, version) uniqueness.
		maxVersion, err := e.store.MaxVersion(ctx, baseName)
		if err != nil {
			return nil, ErrUnableToLoad.Err(err)
		}
		parentID := parent.ID
		d.ParentID = &parentID
		d.BaseName = baseName
		d.Version = maxVersion + 1
		d.Name = fmt.Sprintf("%s v%d", baseName, d.Version)
	}

	if err := e.store.CreateDataset(ctx, d); err != nil {
		return nil, ErrUnableToSave.Err(err)
	}

	if d.Version == 1 {
		e.activity.Record(ctx, d.CreatedBy, ActivityDatasetCreated,
			fmt.Sprintf("Created dataset '%s'", d.Name), &d.ID, nil)
	} else {
		e.activity.Record(ctx, d.CreatedBy, ActivityDatasetVersionCreated,
			fmt.Sprintf("Created version %d of dataset '%s'", d.Version, d.BaseName), &d.ID, nil)
	}
	log.Ctx(ctx).Info().Str("dataset_id", d.ID.String()).Str("name", d.Name).Int("version", d.Version).Msg("created dataset")
	return d, nil
}

// CreateVersion derives a new version from parentID. Description and tags
// are inherited from the parent when not supplied.
func (e *Engine) CreateVersion(ctx context.Context, parentID uuid.UUID, description *string, tags []string, user string) (*models.Dataset, apperrors.Error) {
	parent, err := e.load(ctx, parentID)
	if err != nil {
		return nil, err
	}
	p := CreateParams{
		Description: parent.Description,
		Tags:        parent.Tags,
		CreatedBy:   user,
		ParentID:    &parent.ID,
		BaseName:    parent.BaseName,
	}
	if description != nil {
		p.Description = *description
	}
	if tags != nil {
		p.Tags = tags
	}
	return e.Create(ctx, p)
}

// Get returns the dataset with the given id.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, apperrors.Error) {
	return e.load(ctx, id)
}

// List returns dataset records newest first. Soft-deleted records are
// included only when showDeleted is set.
func (e *Engine) List(ctx context.Context, showDeleted bool) ([]*models.Dataset, apperrors.Error) {
	q := models.DatasetQuery{NewestFirst: true}
	if !showDeleted {
		q.Deleted = models.BoolPtr(false)
	}
	list, err := e.store.QueryDatasets(ctx, q)
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	return list, nil
}

// Versions returns the members of a family, highest version first.
func (e *Engine) Versions(ctx context.Context, baseName string, showDeleted bool) ([]*models.Dataset, apperrors.Error) {
	q := models.DatasetQuery{BaseName: baseName}
	if !showDeleted {
		q.Deleted = models.BoolPtr(false)
	}
	list, err := e.store.QueryDatasets(ctx, q)
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Version > list[j].Version
	})
	return list, nil
}

// Lineage walks parent pointers from d and returns its ancestors, nearest
// first. The walk stops at a record without a parent, at a parent that can no
// longer be found, at a record seen before, or after the configured depth.
func (e *Engine) Lineage(ctx context.Context, d *models.Dataset) ([]*models.Dataset, apperrors.Error) {
	var ancestors []*models.Dataset
	if d == nil {
		return ancestors, nil
	}
	visited := map[uuid.UUID]bool{d.ID: true}
	current := d
	for current.ParentID != nil {
		pid := *current.ParentID
		if visited[pid] {
			log.Ctx(ctx).Warn().Str("dataset_id", d.ID.String()).Str("repeated_id", pid.String()).Msg("cycle in dataset lineage")
			break
		}
		if len(ancestors) >= e.maxDepth {
			log.Ctx(ctx).Warn().Str("dataset_id", d.ID.String()).Int("max_depth", e.maxDepth).Msg("lineage depth limit reached")
			break
		}
		parent, err := e.store.GetDataset(ctx, pid)
		if err != nil {
			if errors.Is(err, dberror.ErrNotFound) {
				break
			}
			return nil, ErrUnableToLoad.Err(err)
		}
		visited[pid] = true
		ancestors = append(ancestors, parent)
		current = parent
	}
	return ancestors, nil
}

// SetProduction marks or unmarks id as the production version of its family.
// Marking clears the flag on every other record of the family in the same
// transaction.
func (e *Engine) SetProduction(ctx context.Context, id uuid.UUID, production bool, user string) (*models.Dataset, apperrors.Error) {
	var result *models.Dataset
	txErr := e.store.RunInTx(ctx, func(ctx context.Context) error {
		d, err := e.load(ctx, id)
		if err != nil {
			return err
		}
		if d.IsDeleted {
			return ErrForbiddenOnDeleted.Msg("cannot set production status on a deleted dataset")
		}
		if production {
			current, err := e.store.QueryDatasets(ctx, models.DatasetQuery{
				BaseName:   d.BaseName,
				Production: models.BoolPtr(true),
			})
			if err != nil {
				return ErrUnableToLoad.Err(err)
			}
			for _, other := range current {
				if other.ID == d.ID {
					continue
				}
				clearProduction(other)
				if err := e.store.ReplaceDataset(ctx, other); err != nil {
					return ErrUnableToSave.Err(err)
				}
			}
			now := e.now()
			d.IsProduction = true
			d.ProductionSetBy = user
			d.ProductionSetAt = &now
		} else {
			clearProduction(d)
		}
		if err := e.store.ReplaceDataset(ctx, d); err != nil {
			return ErrUnableToSave.Err(err)
		}
		result = d
		return nil
	})
	if txErr != nil {
		return nil, asAppError(txErr)
	}

	if production {
		e.activity.Record(ctx, user, ActivityProductionSet,
			fmt.Sprintf("Set dataset '%s' (version %d) as production", result.Name, result.Version), &result.ID, nil)
	} else {
		e.activity.Record(ctx, user, ActivityProductionUnset,
			fmt.Sprintf("Removed production status from dataset '%s' (version %d)", result.Name, result.Version), &result.ID, nil)
	}
	return result, nil
}

// SoftDelete tombstones id. Deleting an already deleted record returns it
// unchanged.
func (e *Engine) SoftDelete(ctx context.Context, id uuid.UUID, user string) (*models.Dataset, apperrors.Error) {
	d, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsDeleted {
		return d, nil
	}
	now := e.now()
	d.IsDeleted = true
	d.DeletedBy = user
	d.DeletedAt = &now
	if err := e.store.ReplaceDataset(ctx, d); err != nil {
		return nil, ErrUnableToSave.Err(err)
	}
	e.activity.Record(ctx, user, ActivityDatasetDelete,
		fmt.Sprintf("Soft deleted dataset '%s' (version %d)", d.Name, d.Version), &d.ID, nil)
	return d, nil
}

// Restore removes the tombstone from id.
func (e *Engine) Restore(ctx context.Context, id uuid.UUID, user string) (*models.Dataset, apperrors.Error) {
	d, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsDeleted {
		return nil, ErrNotDeleted
	}
	d.IsDeleted = false
	d.DeletedBy = ""
	d.DeletedAt = nil
	if err := e.store.ReplaceDataset(ctx, d); err != nil {
		return nil, ErrUnableToSave.Err(err)
	}
	e.activity.Record(ctx, user, ActivityDatasetRestore,
		fmt.Sprintf("Restored dataset '%s' (version %d)", d.Name, d.Version), &d.ID, nil)
	return d, nil
}

// UpdateMetadata replaces the description and tags of id. Only the creator
// may edit, and only while the record is active.
func (e *Engine) UpdateMetadata(ctx context.Context, id uuid.UUID, user, description string, tags []string) (*models.Dataset, apperrors.Error) {
	d, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != user {
		return nil, ErrPermissionDenied
	}
	if d.IsDeleted {
		return nil, ErrForbiddenOnDeleted
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrInvalidRequest.Msg("description is required")
	}
	tags = NormalizeTags(tags)
	if description == d.Description && sameTags(tags, d.Tags) {
		return nil, ErrNoChanges
	}

	now := e.now()
	d.Description = description
	d.Tags = tags
	d.UpdatedBy = user
	d.UpdatedAt = &now
	if err := e.store.ReplaceDataset(ctx, d); err != nil {
		return nil, ErrUnableToSave.Err(err)
	}
	e.activity.Record(ctx, user, ActivityMetadataUpdated,
		fmt.Sprintf("Updated metadata of dataset '%s'", d.Name), &d.ID, nil)
	return d, nil
}

// GroupByBaseName groups records by family, keeping the input order within
// each group. Families are returned in order of first appearance.
func GroupByBaseName(list []*models.Dataset) [][]*models.Dataset {
	index := make(map[string]int)
	var groups [][]*models.Dataset
	for _, d := range list {
		i, ok := index[d.BaseName]
		if !ok {
			i = len(groups)
			index[d.BaseName] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], d)
	}
	return groups
}

func (e *Engine) load(ctx context.Context, id uuid.UUID) (*models.Dataset, apperrors.Error) {
	d, err := e.store.GetDataset(ctx, id)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, ErrUnableToLoad.Err(err)
	}
	return d, nil
}

func clearProduction(d *models.Dataset) {
	d.IsProduction = false
	d.ProductionSetBy = ""
	d.ProductionSetAt = nil
}

func asAppError(err error) apperrors.Error {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrUnableToSave.Err(err)
}
