package postgresql

import (
	"context"

	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (s *Store) CreateActivity(ctx context.Context, a *models.Activity) apperrors.Error {
	query := `INSERT INTO activities (activity_id, username, activity_type, message, dataset_id, file_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.conn(ctx).ExecContext(ctx, query, a.ID, a.Username, a.ActivityType, a.Message,
		nullUUID(a.DatasetID), nullUUID(a.FileID), a.Timestamp)
	if err != nil {
		return dbErr(ctx, err, "failed to insert activity")
	}
	return nil
}

func (s *Store) ListActivities(ctx context.Context, q models.ActivityQuery) ([]*models.Activity, apperrors.Error) {
	query := `SELECT activity_id, username, activity_type, message, dataset_id, file_id, created_at FROM activities`
	var args []any
	if q.Username != "" {
		args = append(args, q.Username)
		query += ` WHERE username = $1`
	}
	query += ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		if len(args) == 1 {
			query += ` LIMIT $1`
		} else {
			query += ` LIMIT $2`
		}
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(ctx, err, "failed to list activities")
	}
	defer rows.Close()
	var activities []*models.Activity
	for rows.Next() {
		var (
			a               models.Activity
			datasetID, file uuid.NullUUID
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.ActivityType, &a.Message, &datasetID, &file, &a.Timestamp); err != nil {
			return nil, dbErr(ctx, err, "failed to scan activity")
		}
		if datasetID.Valid {
			id := datasetID.UUID
			a.DatasetID = &id
		}
		if file.Valid {
			id := file.UUID
			a.FileID = &id
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(ctx, err, "failed to iterate activities")
	}
	return activities, nil
}
