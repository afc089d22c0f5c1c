// Package apis serves the dataset, file, search and activity endpoints. The
// same handlers are mounted behind session and API key authentication.
package apis

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

const DefaultMaxUploadSize = 512 << 20

type Options struct {
	DownloadValidity   time.Duration
	DirectLinkValidity time.Duration
	MaxUploadSize      int64
}

// Handlers binds the HTTP surface to a dataset engine.
type Handlers struct {
	engine *datasets.Engine
	opts   Options
}

func NewHandlers(engine *datasets.Engine, opts Options) *Handlers {
	if opts.DownloadValidity <= 0 {
		opts.DownloadValidity = time.Hour
	}
	if opts.DirectLinkValidity <= 0 {
		opts.DirectLinkValidity = 5 * time.Hour
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Handlers{engine: engine, opts: opts}
}

func (h *Handlers) datasetHandlers() []httpx.ResponseHandlerParam {
	return []httpx.ResponseHandlerParam{
		{Method: http.MethodGet, Path: "/", Handler: h.listDatasets},
		{Method: http.MethodPost, Path: "/", Handler: h.createDataset},
		{Method: http.MethodGet, Path: "/search", Handler: h.searchDatasets},
		{Method: http.MethodGet, Path: "/lineage", Handler: h.lineageGraph},
		{Method: http.MethodGet, Path: "/tags", Handler: h.listTags},
		{Method: http.MethodGet, Path: "/tags/counts", Handler: h.tagCounts},
		{Method: http.MethodGet, Path: "/recent", Handler: h.recentDatasets},
		{Method: http.MethodGet, Path: "/mine", Handler: h.myDatasets},
		{Method: http.MethodGet, Path: "/stats", Handler: h.datasetStats},
		{Method: http.MethodGet, Path: "/{datasetID}", Handler: h.getDataset},
		{Method: http.MethodPut, Path: "/{datasetID}", Handler: h.updateDataset},
		{Method: http.MethodGet, Path: "/{datasetID}/lineage", Handler: h.familyGraph},
		{Method: http.MethodPost, Path: "/{datasetID}/versions", Handler: h.createVersion},
		{Method: http.MethodPost, Path: "/{datasetID}/delete", Handler: h.deleteDataset},
		{Method: http.MethodPost, Path: "/{datasetID}/restore", Handler: h.restoreDataset},
		{Method: http.MethodPost, Path: "/{datasetID}/production", Handler: h.setProduction},
		{Method: http.MethodGet, Path: "/{datasetID}/files", Handler: h.listFiles},
		{Method: http.MethodPost, Path: "/{datasetID}/files", Handler: h.uploadFile},
		{Method: http.MethodGet, Path: "/{datasetID}/files/{fileID}/download", Handler: h.downloadLink},
		{Method: http.MethodGet, Path: "/{datasetID}/files/{fileID}/direct-link", Handler: h.directLink},
	}
}

// DatasetRouter returns the dataset routes. Authentication is left to the
// caller's middleware.
func (h *Handlers) DatasetRouter() chi.Router {
	router := chi.NewRouter()
	for _, handler := range h.datasetHandlers() {
		router.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
	}
	return router
}

// ActivityRouter returns the activity feed routes.
func (h *Handlers) ActivityRouter() chi.Router {
	router := chi.NewRouter()
	router.Method(http.MethodGet, "/", httpx.WrapHttpRsp(h.listActivities))
	router.Method(http.MethodGet, "/mine", httpx.WrapHttpRsp(h.myActivities))
	return router
}
