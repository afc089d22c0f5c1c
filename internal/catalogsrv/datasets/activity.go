package datasets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/db"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

const (
	ActivityDatasetCreated        = "dataset_created"
	ActivityDatasetVersionCreated = "dataset_version_created"
	ActivityMetadataUpdated       = "dataset_metadata_updated"
	ActivityDatasetDelete         = "dataset_delete"
	ActivityDatasetRestore        = "dataset_restore"
	ActivityProductionSet         = "dataset_production_set"
	ActivityProductionUnset       = "dataset_production_unset"
	ActivityFileUploaded          = "file_uploaded"
	ActivityFileDownload          = "file_download"
	ActivityFileDirectLink        = "file_direct_link"
	ActivityUserStatusUpdate      = "user_status_update"
	ActivityUserApproved          = "user_approved"
	ActivityAPIKeyGenerated       = "api_key_generated"
	ActivityAPIKeyRevoked         = "api_key_revoked"
)

const DefaultActivityLimit = 20

// ActivityLog appends audit entries. Writes never fail the caller.
type ActivityLog struct {
	store db.ActivityManager
	now   func() time.Time
}

func NewActivityLog(store db.ActivityManager, now func() time.Time) *ActivityLog {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ActivityLog{store: store, now: now}
}

// Record writes an activity entry. A failed write is logged and dropped.
func (a *ActivityLog) Record(ctx context.Context, username, activityType, message string, datasetID, fileID *uuid.UUID) {
	entry := &models.Activity{
		ID:           catcommon.NewID(),
		Username:     username,
		ActivityType: activityType,
		Message:      message,
		DatasetID:    datasetID,
		FileID:       fileID,
		Timestamp:    a.now(),
	}
	if err := a.store.CreateActivity(ctx, entry); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("activity_type", activityType).Str("username", username).Msg("failed to record activity")
	}
}

// Recent returns the latest entries across all users, or of one user when
// username is set.
func (a *ActivityLog) Recent(ctx context.Context, username string, limit int) ([]*models.Activity, apperrors.Error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	list, err := a.store.ListActivities(ctx, models.ActivityQuery{Username: username, Limit: limit})
	if err != nil {
		return nil, ErrUnableToLoad.Msg("unable to load activities").Err(err)
	}
	return list, nil
}
