// Package blobstore stores uploaded file payloads. Objects are addressed by a
// slash-separated path and read back through time-limited URLs.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tansive/datacatalog/internal/catalogsrv/config"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

var (
	ErrBlobStore     apperrors.Error = apperrors.New("object store error").SetStatusCode(http.StatusInternalServerError)
	ErrBlobNotFound  apperrors.Error = ErrBlobStore.New("object not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidPath   apperrors.Error = ErrBlobStore.New("invalid object path").SetStatusCode(http.StatusBadRequest)
	ErrInvalidSigned apperrors.Error = ErrBlobStore.New("invalid or expired link").SetStatusCode(http.StatusForbidden)
)

// Store is the object store contract. Put overwrites an existing object.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) (int64, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, path string, validity time.Duration) (string, error)
	Close() error
}

// Open creates the object store selected by cfg.
func Open(ctx context.Context, cfg config.ObjectStoreConfig) (Store, error) {
	switch cfg.Type {
	case config.ObjectStoreGCS:
		s, err := NewGCSStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ObjectStoreLocal:
		s, err := NewLocalStore(cfg.LocalDir, cfg.SigningKey, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown object store type %q", cfg.Type)
}
