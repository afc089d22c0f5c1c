package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type apiKeyRsp struct {
	APIKey string `json:"api_key"`
}

// Router returns the /auth routes. Signup and login are public; API key
// management needs a session.
func Router(s *Service) chi.Router {
	public := []httpx.ResponseHandlerParam{
		{Method: http.MethodPost, Path: "/signup", Handler: s.signup},
		{Method: http.MethodPost, Path: "/login", Handler: s.login},
	}
	session := []httpx.ResponseHandlerParam{
		{Method: http.MethodPost, Path: "/api-key", Handler: s.generateAPIKey},
		{Method: http.MethodDelete, Path: "/api-key", Handler: s.revokeAPIKey},
	}

	router := chi.NewRouter()
	for _, h := range public {
		router.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
	router.Group(func(r chi.Router) {
		r.Use(s.SessionMiddleware)
		for _, h := range session {
			r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
		}
	})
	return router
}

func (s *Service) signup(r *http.Request) (*httpx.Response, error) {
	req := SignupRequest{}
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	u, err := s.Signup(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   u,
	}, nil
}

func (s *Service) login(r *http.Request) (*httpx.Response, error) {
	req := loginRequest{}
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if req.Username == "" || req.Password == "" {
		return nil, ErrInvalidRequest.Msg("username and password are required")
	}
	result, err := s.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   result,
	}, nil
}

func (s *Service) generateAPIKey(r *http.Request) (*httpx.Response, error) {
	uc := catcommon.UserContextFromContext(r.Context())
	if uc == nil {
		return nil, ErrUnauthorized
	}
	key, err := s.GenerateAPIKey(r.Context(), uc.UserID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   apiKeyRsp{APIKey: key},
	}, nil
}

func (s *Service) revokeAPIKey(r *http.Request) (*httpx.Response, error) {
	uc := catcommon.UserContextFromContext(r.Context())
	if uc == nil {
		return nil, ErrUnauthorized
	}
	if err := s.RevokeAPIKey(r.Context(), uc.UserID); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusNoContent,
	}, nil
}
