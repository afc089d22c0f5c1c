package datasets

import (
	"net/http"

	"github.com/tansive/datacatalog/internal/common/apperrors"
)

var (
	ErrDatasetError       apperrors.Error = apperrors.New("error in processing dataset").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidName        apperrors.Error = ErrDatasetError.New("invalid dataset name").SetStatusCode(http.StatusBadRequest)
	ErrNameConflict       apperrors.Error = ErrDatasetError.New("a dataset with this name already exists").SetStatusCode(http.StatusConflict)
	ErrParentNotFound     apperrors.Error = ErrDatasetError.New("parent dataset not found").SetStatusCode(http.StatusNotFound)
	ErrNotFound           apperrors.Error = ErrDatasetError.New("not found").SetStatusCode(http.StatusNotFound)
	ErrDatasetNotFound    apperrors.Error = ErrNotFound.New("dataset not found")
	ErrFileNotFound       apperrors.Error = ErrNotFound.New("file not found")
	ErrNotDeleted         apperrors.Error = ErrDatasetError.New("dataset is not deleted").SetStatusCode(http.StatusConflict)
	ErrForbiddenOnDeleted apperrors.Error = ErrDatasetError.New("operation not permitted on a deleted dataset").SetStatusCode(http.StatusForbidden)
	ErrPermissionDenied   apperrors.Error = ErrDatasetError.New("only the creator of a dataset can modify it").SetStatusCode(http.StatusForbidden)
	ErrInvalidRequest     apperrors.Error = ErrDatasetError.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrNoChanges          apperrors.Error = ErrDatasetError.New("no changes to existing dataset").SetStatusCode(http.StatusConflict)
	ErrUnableToStoreFile  apperrors.Error = ErrDatasetError.New("unable to store file").SetExpandError(true).SetStatusCode(http.StatusInternalServerError)
	ErrUnableToLoad       apperrors.Error = ErrDatasetError.New("unable to load dataset").SetStatusCode(http.StatusInternalServerError)
	ErrUnableToSave       apperrors.Error = ErrDatasetError.New("unable to save dataset").SetStatusCode(http.StatusInternalServerError)
)
