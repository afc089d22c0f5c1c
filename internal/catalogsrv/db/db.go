package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/config"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/memstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/postgresql"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// DB_ is the metadata store. The managers are separate interfaces so each can
// be wrapped on its own.

type DatasetManager interface {
	CreateDataset(ctx context.Context, d *models.Dataset) apperrors.Error
	GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, apperrors.Error)
	ReplaceDataset(ctx context.Context, d *models.Dataset) apperrors.Error
	UpsertDataset(ctx context.Context, d *models.Dataset) apperrors.Error
	QueryDatasets(ctx context.Context, q models.DatasetQuery) ([]*models.Dataset, apperrors.Error)
	// MaxVersion is the highest version in a family, soft-deleted records included.
	MaxVersion(ctx context.Context, baseName string) (int, apperrors.Error)
}

type UserManager interface {
	CreateUser(ctx context.Context, u *models.User) apperrors.Error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, apperrors.Error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, apperrors.Error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, apperrors.Error)
	UpdateUser(ctx context.Context, u *models.User) apperrors.Error
	ListUsers(ctx context.Context, q models.UserQuery) ([]*models.User, apperrors.Error)
}

type ActivityManager interface {
	CreateActivity(ctx context.Context, a *models.Activity) apperrors.Error
	ListActivities(ctx context.Context, q models.ActivityQuery) ([]*models.Activity, apperrors.Error)
}

type ConnectionManager interface {
	// RunInTx runs fn as a single transaction. Store calls must use the
	// context handed to fn to take part in it.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close()
}

type DB_ interface {
	DatasetManager
	UserManager
	ActivityManager
	ConnectionManager
}

var (
	_ DB_ = (*memstore.Store)(nil)
	_ DB_ = (*postgresql.Store)(nil)
)

// Open creates the metadata store selected by cfg.
func Open(ctx context.Context, cfg config.MetadataStoreConfig) (DB_, error) {
	switch cfg.Type {
	case config.MetadataStoreMemory:
		log.Ctx(ctx).Warn().Msg("using in-memory metadata store; data is lost on restart")
		return memstore.New(), nil
	case config.MetadataStorePostgres:
		s, err := postgresql.Open(ctx, postgresql.Options{
			DSN:              cfg.DSN(),
			StatementTimeout: cfg.StatementTimeout,
			MaxOpenConns:     cfg.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown metadata store type %q", cfg.Type)
}
