package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/config"
	"google.golang.org/api/option"
)

const gcsWriteTimeout = 2 * time.Minute

// GCSStore keeps objects in a single Google Cloud Storage bucket.
type GCSStore struct {
	client         *storage.Client
	bucket         string
	googleAccessID string
	privateKey     []byte
}

func NewGCSStore(ctx context.Context, cfg config.ObjectStoreConfig) (*GCSStore, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s := &GCSStore{
		client:         client,
		bucket:         cfg.Bucket,
		googleAccessID: cfg.GoogleAccessID,
	}
	if cfg.PrivateKeyFile != "" {
		key, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to read signing key: %w", err)
		}
		s.privateKey = key
	}
	log.Ctx(ctx).Info().Str("bucket", cfg.Bucket).Msg("object storage initialized")
	return s, nil
}

func (s *GCSStore) Put(ctx context.Context, path string, r io.Reader, contentType string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	n, err := io.Copy(w, r)
	if err != nil {
		// cancelling first makes Close abort the upload instead of committing
		// a truncated object
		cancel()
		_ = w.Close()
		return 0, ErrBlobStore.MsgErr("failed to write data to GCS", err)
	}
	if err := w.Close(); err != nil {
		return 0, ErrBlobStore.MsgErr("failed to close GCS writer", err)
	}
	return n, nil
}

func (s *GCSStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrBlobNotFound.Err(err)
		}
		return nil, ErrBlobStore.MsgErr("failed to open GCS object", err)
	}
	return rc, nil
}

// SignedURL returns a V4 signed GET URL. Without an explicit access id and key
// the client library signs with the credentials it was created with.
func (s *GCSStore) SignedURL(ctx context.Context, path string, validity time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(validity),
	}
	if s.googleAccessID != "" {
		opts.GoogleAccessID = s.googleAccessID
	}
	if len(s.privateKey) > 0 {
		opts.PrivateKey = s.privateKey
	}
	u, err := s.client.Bucket(s.bucket).SignedURL(path, opts)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("path", path).Msg("failed to sign url")
		return "", ErrBlobStore.MsgErr("failed to generate link", err)
	}
	return u, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
