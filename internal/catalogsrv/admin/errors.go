package admin

import (
	"net/http"

	"github.com/tansive/datacatalog/internal/common/apperrors"
)

var (
	ErrAdmin            apperrors.Error = apperrors.New("admin error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidRequest   apperrors.Error = ErrAdmin.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrInvalidStatus    apperrors.Error = ErrInvalidRequest.New("invalid status")
	ErrUserNotFound     apperrors.Error = ErrAdmin.New("user not found").SetStatusCode(http.StatusNotFound)
	ErrAdminTarget      apperrors.Error = ErrAdmin.New("cannot change the status of an administrator").SetStatusCode(http.StatusForbidden)
	ErrUnableToLoadUser apperrors.Error = ErrAdmin.New("unable to load user")
	ErrUnableToSaveUser apperrors.Error = ErrAdmin.New("unable to save user")
)
