package apis

import (
	"net/http"

	"github.com/tansive/datacatalog/internal/common/apperrors"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

var (
	ErrAPI            apperrors.Error = apperrors.New("api error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidRequest apperrors.Error = ErrAPI.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrInvalidID      apperrors.Error = ErrInvalidRequest.New("invalid id")
	ErrFileTooLarge   apperrors.Error = ErrAPI.New("file exceeds the upload limit").SetStatusCode(http.StatusRequestEntityTooLarge)
)

// ToHttpxError converts an application error into the wire error it is sent as.
func ToHttpxError(err error) error {
	if appErr, ok := err.(apperrors.Error); ok {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		return &httpx.Error{
			StatusCode:  statusCode,
			Description: appErr.ErrorAll(),
		}
	}
	return err
}
