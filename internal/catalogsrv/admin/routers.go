package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/catalogsrv/schemavalidator"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

type statusReq struct {
	Status string `json:"status" validate:"required,userStatus"`
}

type usersRsp struct {
	Users []*models.User `json:"users"`
}

// Router returns the /admin routes. The caller mounts it behind session
// authentication and auth.RequireAdmin.
func Router(s *Service) chi.Router {
	handlers := []httpx.ResponseHandlerParam{
		{Method: http.MethodGet, Path: "/users", Handler: s.listUsers},
		{Method: http.MethodGet, Path: "/users/pending", Handler: s.pendingUsers},
		{Method: http.MethodPut, Path: "/users/{userID}/status", Handler: s.setStatus},
		{Method: http.MethodPost, Path: "/users/{userID}/approve", Handler: s.approve},
	}
	router := chi.NewRouter()
	for _, h := range handlers {
		router.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
	return router
}

func userID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, ErrInvalidRequest.Msg("invalid user id")
	}
	return id, nil
}

func (s *Service) listUsers(r *http.Request) (*httpx.Response, error) {
	users, err := s.Users(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: usersRsp{Users: users}}, nil
}

func (s *Service) pendingUsers(r *http.Request) (*httpx.Response, error) {
	users, err := s.Users(r.Context(), models.StatusUnverified)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: usersRsp{Users: users}}, nil
}

func (s *Service) setStatus(r *http.Request) (*httpx.Response, error) {
	id, err := userID(r)
	if err != nil {
		return nil, err
	}
	req := statusReq{}
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := schemavalidator.V().Struct(req); err != nil {
		return nil, ErrInvalidStatus.Msg(strings.Join(schemavalidator.ValidationErrors(err), "; "))
	}
	u, aerr := s.SetStatus(r.Context(), catcommon.UsernameFromContext(r.Context()), id, req.Status)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: u}, nil
}

func (s *Service) approve(r *http.Request) (*httpx.Response, error) {
	id, err := userID(r)
	if err != nil {
		return nil, err
	}
	u, aerr := s.Approve(r.Context(), catcommon.UsernameFromContext(r.Context()), id)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: u}, nil
}
