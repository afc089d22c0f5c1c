package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/admin"
	"github.com/tansive/datacatalog/internal/catalogsrv/apis"
	"github.com/tansive/datacatalog/internal/catalogsrv/auth"
	"github.com/tansive/datacatalog/internal/catalogsrv/blobstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/config"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db"
	"github.com/tansive/datacatalog/internal/common/httpx"
	"github.com/tansive/datacatalog/internal/common/middleware"
)

const (
	ServerVersion = "Data Catalog Server: 0.1.0"
	APIVersion    = "v1"
)

type CatalogServer struct {
	Router *chi.Mux

	cfg      *config.ConfigParam
	blobs    blobstore.Store
	engine   *datasets.Engine
	auth     *auth.Service
	admin    *admin.Service
	handlers *apis.Handlers
}

// CreateNewServer wires the services over an open metadata store and object
// store. The caller owns both and closes them on shutdown.
func CreateNewServer(cfg *config.ConfigParam, store db.DB_, blobs blobstore.Store) (*CatalogServer, error) {
	engine := datasets.NewEngine(store, blobs, datasets.Options{MaxLineageDepth: cfg.MaxLineageDepth})
	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionDuration())
	s := &CatalogServer{
		Router: chi.NewRouter(),
		cfg:    cfg,
		blobs:  blobs,
		engine: engine,
		auth:   auth.NewService(store, tokens, engine.Activities()),
		admin:  admin.NewService(store, engine.Activities()),
		handlers: apis.NewHandlers(engine, apis.Options{
			DownloadValidity:   cfg.DownloadValidity(),
			DirectLinkValidity: cfg.DirectLinkValidity(),
			MaxUploadSize:      int64(cfg.MaxUploadSizeMB) << 20,
		}),
	}
	return s, nil
}

// Bootstrap creates the configured administrator account if it is missing.
func (s *CatalogServer) Bootstrap(ctx context.Context) error {
	if err := s.auth.EnsureAdmin(ctx, s.cfg.BootstrapAdmin); err != nil {
		return err
	}
	return nil
}

func (s *CatalogServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.mountResourceHandlers(s.Router)
	if zerolog.GlobalLevel() <= zerolog.TraceLevel {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("error walking router")
		}
	}
}

func (s *CatalogServer) mountResourceHandlers(r chi.Router) {
	r.Mount("/auth", auth.Router(s.auth))

	r.Group(func(r chi.Router) {
		r.Use(s.auth.SessionMiddleware)
		r.Mount("/datasets", s.handlers.DatasetRouter())
		r.Mount("/activities", s.handlers.ActivityRouter())
	})
	r.Group(func(r chi.Router) {
		r.Use(s.auth.SessionMiddleware, auth.RequireAdmin)
		r.Mount("/admin", admin.Router(s.admin))
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.APIKeyMiddleware)
		r.Mount("/datasets", s.handlers.DatasetRouter())
		r.Mount("/activities", s.handlers.ActivityRouter())
	})

	if local, ok := s.blobs.(*blobstore.LocalStore); ok {
		r.Handle(blobstore.LocalPathPrefix+"*", local)
	}
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *CatalogServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: ServerVersion,
		ApiVersion:    APIVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *CatalogServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *CatalogServer) HandleCORS(next http.Handler) http.Handler {
	origins := s.cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding", auth.APIKeyHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIdHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
