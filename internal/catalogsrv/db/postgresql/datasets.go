package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

const datasetColumns = `dataset_id, name, base_name, version, parent_id, description, tags,
	created_by, created_at, updated_by, updated_at, is_deleted, deleted_by, deleted_at,
	is_production, production_set_by, production_set_at, files`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(r rowScanner) (*models.Dataset, error) {
	var (
		d            models.Dataset
		parent       uuid.NullUUID
		tags         pq.StringArray
		updatedBy    sql.NullString
		updatedAt    sql.NullTime
		deletedBy    sql.NullString
		deletedAt    sql.NullTime
		productionBy sql.NullString
		productionAt sql.NullTime
		files        pgtype.JSONB
	)
	err := r.Scan(&d.ID, &d.Name, &d.BaseName, &d.Version, &parent, &d.Description, &tags,
		&d.CreatedBy, &d.CreatedAt, &updatedBy, &updatedAt, &d.IsDeleted, &deletedBy, &deletedAt,
		&d.IsProduction, &productionBy, &productionAt, &files)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.UUID
		d.ParentID = &p
	}
	d.Tags = []string(tags)
	d.UpdatedBy = updatedBy.String
	d.UpdatedAt = timePtr(updatedAt)
	d.DeletedBy = deletedBy.String
	d.DeletedAt = timePtr(deletedAt)
	d.ProductionSetBy = productionBy.String
	d.ProductionSetAt = timePtr(productionAt)
	if files.Status == pgtype.Present {
		if err := json.Unmarshal(files.Bytes, &d.Files); err != nil {
			return nil, fmt.Errorf("unable to decode files: %w", err)
		}
	}
	return &d, nil
}

// datasetArgs returns the column values of d in datasetColumns order.
func datasetArgs(d *models.Dataset) ([]any, error) {
	var parent uuid.NullUUID
	if d.ParentID != nil {
		parent = uuid.NullUUID{UUID: *d.ParentID, Valid: true}
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	fileList := d.Files
	if fileList == nil {
		fileList = []models.FileInfo{}
	}
	var files pgtype.JSONB
	if err := files.Set(fileList); err != nil {
		return nil, err
	}
	return []any{d.ID, d.Name, d.BaseName, d.Version, parent, d.Description, pq.Array(tags),
		d.CreatedBy, d.CreatedAt, nullString(d.UpdatedBy), nullTime(d.UpdatedAt), d.IsDeleted,
		nullString(d.DeletedBy), nullTime(d.DeletedAt), d.IsProduction, nullString(d.ProductionSetBy),
		nullTime(d.ProductionSetAt), files}, nil
}

func (s *Store) CreateDataset(ctx context.Context, d *models.Dataset) apperrors.Error {
	if d == nil || d.ID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("dataset id is required")
	}
	args, err := datasetArgs(d)
	if err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	query := `INSERT INTO datasets (` + datasetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return dberror.ErrAlreadyExists.Msg("dataset already exists")
		}
		return dbErr(ctx, err, "failed to insert dataset")
	}
	return nil
}

func (s *Store) GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, apperrors.Error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE dataset_id = $1`
	d, err := scanDataset(s.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("dataset not found")
		}
		return nil, dbErr(ctx, err, "failed to get dataset")
	}
	return d, nil
}

// ReplaceDataset overwrites every column of an existing record.
func (s *Store) ReplaceDataset(ctx context.Context, d *models.Dataset) apperrors.Error {
	args, err := datasetArgs(d)
	if err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	query := `UPDATE datasets SET
			name = $2, base_name = $3, version = $4, parent_id = $5, description = $6, tags = $7,
			created_by = $8, created_at = $9, updated_by = $10, updated_at = $11, is_deleted = $12,
			deleted_by = $13, deleted_at = $14, is_production = $15, production_set_by = $16,
			production_set_at = $17, files = $18
		WHERE dataset_id = $1`
	result, errdb := s.conn(ctx).ExecContext(ctx, query, args...)
	if errdb != nil {
		return dbErr(ctx, errdb, "failed to replace dataset")
	}
	n, errdb := result.RowsAffected()
	if errdb != nil {
		return dbErr(ctx, errdb, "failed to replace dataset")
	}
	if n == 0 {
		return dberror.ErrNotFound.Msg("dataset not found")
	}
	return nil
}

func (s *Store) UpsertDataset(ctx context.Context, d *models.Dataset) apperrors.Error {
	args, err := datasetArgs(d)
	if err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	query := `INSERT INTO datasets (` + datasetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (dataset_id) DO UPDATE SET
			name = EXCLUDED.name, base_name = EXCLUDED.base_name, version = EXCLUDED.version,
			parent_id = EXCLUDED.parent_id, description = EXCLUDED.description, tags = EXCLUDED.tags,
			created_by = EXCLUDED.created_by, created_at = EXCLUDED.created_at,
			updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at,
			is_deleted = EXCLUDED.is_deleted, deleted_by = EXCLUDED.deleted_by,
			deleted_at = EXCLUDED.deleted_at, is_production = EXCLUDED.is_production,
			production_set_by = EXCLUDED.production_set_by,
			production_set_at = EXCLUDED.production_set_at, files = EXCLUDED.files`
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return dbErr(ctx, err, "failed to upsert dataset")
	}
	return nil
}

// QueryDatasets builds a parameterized WHERE clause from q. No value from q is
// ever spliced into the statement text.
func (s *Store) QueryDatasets(ctx context.Context, q models.DatasetQuery) ([]*models.Dataset, apperrors.Error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(q.IDs) > 0 {
		ids := make([]string, len(q.IDs))
		for i, id := range q.IDs {
			ids[i] = id.String()
		}
		conds = append(conds, "dataset_id = ANY("+arg(pq.Array(ids))+"::uuid[])")
	}
	if q.Name != "" {
		conds = append(conds, "name = "+arg(q.Name))
	}
	if q.BaseName != "" {
		conds = append(conds, "base_name = "+arg(q.BaseName))
	}
	if q.Deleted != nil {
		conds = append(conds, "is_deleted = "+arg(*q.Deleted))
	}
	if q.Production != nil {
		conds = append(conds, "is_production = "+arg(*q.Production))
	}
	if len(q.CreatedBy) > 0 {
		users := make([]string, len(q.CreatedBy))
		for i, u := range q.CreatedBy {
			users[i] = strings.ToLower(u)
		}
		conds = append(conds, "lower(created_by) = ANY("+arg(pq.Array(users))+")")
	}
	if q.CreatedAfter != nil {
		conds = append(conds, "created_at >= "+arg(*q.CreatedAfter))
	}

	query := `SELECT ` + datasetColumns + ` FROM datasets`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.NewestFirst {
		query += " ORDER BY created_at DESC"
	} else {
		query += " ORDER BY created_at ASC"
	}
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(ctx, err, "failed to query datasets")
	}
	defer rows.Close()

	var result []*models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, dbErr(ctx, err, "failed to scan dataset")
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(ctx, err, "failed to iterate datasets")
	}
	log.Ctx(ctx).Debug().Int("count", len(result)).Msg("queried datasets")
	return result, nil
}

// MaxVersion returns the highest version assigned in a family, counting
// soft-deleted records. It returns 0 for an unknown family.
func (s *Store) MaxVersion(ctx context.Context, baseName string) (int, apperrors.Error) {
	var max int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM datasets WHERE base_name = $1`, baseName).Scan(&max)
	if err != nil {
		return 0, dbErr(ctx, err, "failed to get max version")
	}
	return max, nil
}
