package datasets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// sniffLen is the number of leading bytes used to detect a content type.
const sniffLen = 3072

// UploadParams describe a file being attached to a dataset.
type UploadParams struct {
	DatasetID   uuid.UUID
	Filename    string
	ContentType string
	Description string
	Tags        []string
	UploadedBy  string
}

// DownloadLink is a time-limited URL to a file payload.
type DownloadLink struct {
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	ValidHours int    `json:"valid_hours"`
}

// BlobPath is the object store path of a file: <base_name>/<version>/<file_id>_<filename>.
func BlobPath(d *models.Dataset, fileID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%d/%s_%s", d.BaseName, d.Version, fileID, filename)
}

// cleanFilename drops any directory part a client may send.
func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// Upload writes the payload read from r to the object store and appends its
// metadata to the dataset. Only the dataset creator may upload, and only while
// the dataset is active.
func (e *Engine) Upload(ctx context.Context, p UploadParams, r io.Reader) (*models.FileInfo, apperrors.Error) {
	filename := cleanFilename(p.Filename)
	if filename == "" || r == nil {
		return nil, ErrInvalidRequest.Msg("no file provided")
	}
	d, err := e.load(ctx, p.DatasetID)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != p.UploadedBy {
		return nil, ErrPermissionDenied
	}
	if d.IsDeleted {
		return nil, ErrForbiddenOnDeleted
	}

	contentType := strings.TrimSpace(p.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, sniffLen)
		n, rerr := io.ReadFull(r, head)
		if rerr != nil && !errors.Is(rerr, io.ErrUnexpectedEOF) && !errors.Is(rerr, io.EOF) {
			return nil, ErrUnableToStoreFile.Err(rerr)
		}
		head = head[:n]
		contentType = mimetype.Detect(head).String()
		r = io.MultiReader(bytes.NewReader(head), r)
	}

	fileID := catcommon.NewID()
	blobPath := BlobPath(d, fileID, filename)
	size, perr := e.blobs.Put(ctx, blobPath, r, contentType)
	if perr != nil {
		log.Ctx(ctx).Error().Err(perr).Str("blob_path", blobPath).Msg("failed to write file to object store")
		return nil, ErrUnableToStoreFile.Err(perr)
	}

	info := models.FileInfo{
		ID:          fileID,
		Filename:    filename,
		BlobPath:    blobPath,
		UploadedBy:  p.UploadedBy,
		UploadedAt:  e.now(),
		SizeBytes:   size,
		SizeKB:      math.Round(float64(size)/1024*100) / 100,
		ContentType: contentType,
		Description: strings.TrimSpace(p.Description),
		Tags:        NormalizeTags(p.Tags),
	}

	// The record is re-read inside the transaction so a concurrent upload to
	// the same dataset is not lost.
	txErr := e.store.RunInTx(ctx, func(ctx context.Context) error {
		current, err := e.load(ctx, p.DatasetID)
		if err != nil {
			return err
		}
		if current.IsDeleted {
			return ErrForbiddenOnDeleted
		}
		current.Files = append(current.Files, info)
		current.UpdatedBy = p.UploadedBy
		current.UpdatedAt = &info.UploadedAt
		if err := e.store.ReplaceDataset(ctx, current); err != nil {
			return ErrUnableToSave.Err(err)
		}
		d = current
		return nil
	})
	if txErr != nil {
		return nil, asAppError(txErr)
	}

	e.activity.Record(ctx, p.UploadedBy, ActivityFileUploaded,
		fmt.Sprintf("Uploaded file '%s' to dataset '%s'", info.Filename, d.Name), &d.ID, &info.ID)
	return &info, nil
}

// FindFile looks up a file entry. It returns (nil, nil) when the dataset does
// not exist and (dataset, nil) when the dataset has no such file.
func (e *Engine) FindFile(ctx context.Context, datasetID, fileID uuid.UUID) (*models.Dataset, *models.FileInfo, apperrors.Error) {
	d, err := e.load(ctx, datasetID)
	if err != nil {
		if errors.Is(err, ErrDatasetNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for i := range d.Files {
		if d.Files[i].ID == fileID {
			f := d.Files[i]
			return d, &f, nil
		}
	}
	return d, nil, nil
}

// DownloadURL returns a signed link to a file valid for the given duration.
// direct selects the activity type recorded for the request.
func (e *Engine) DownloadURL(ctx context.Context, datasetID, fileID uuid.UUID, validity time.Duration, user string, direct bool) (*DownloadLink, apperrors.Error) {
	d, f, err := e.FindFile(ctx, datasetID, fileID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDatasetNotFound
	}
	if f == nil {
		return nil, ErrFileNotFound
	}
	url, serr := e.blobs.SignedURL(ctx, f.BlobPath, validity)
	if serr != nil {
		return nil, ErrUnableToLoad.Msg("unable to create download link").Err(serr)
	}

	if direct {
		e.activity.Record(ctx, user, ActivityFileDirectLink,
			fmt.Sprintf("Generated direct link for file '%s' from dataset '%s'", f.Filename, d.Name), &d.ID, &f.ID)
	} else {
		e.activity.Record(ctx, user, ActivityFileDownload,
			fmt.Sprintf("Downloaded file '%s' from dataset '%s'", f.Filename, d.Name), &d.ID, &f.ID)
	}
	return &DownloadLink{
		URL:        url,
		Filename:   f.Filename,
		ValidHours: int(validity / time.Hour),
	}, nil
}
