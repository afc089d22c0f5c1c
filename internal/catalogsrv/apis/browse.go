package apis

import (
	"net/http"

	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

type searchRsp struct {
	Query    string            `json:"query"`
	Datasets []*models.Dataset `json:"datasets"`
}

type tagsRsp struct {
	Tags []string `json:"tags"`
}

type tagCountsRsp struct {
	Tags []datasets.TagCount `json:"tags"`
}

type activitiesRsp struct {
	Activities []*models.Activity `json:"activities"`
}

func okRsp(v any) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusOK, Response: v}
}

func (h *Handlers) searchDatasets(r *http.Request) (*httpx.Response, error) {
	query := r.URL.Query().Get("query")
	list, err := h.engine.Search(r.Context(), query, httpx.QueryBool(r, "show_deleted"))
	if err != nil {
		return nil, err
	}
	return okRsp(searchRsp{Query: query, Datasets: list}), nil
}

func (h *Handlers) lineageGraph(r *http.Request) (*httpx.Response, error) {
	g, err := h.engine.LineageGraph(r.Context(), httpx.QueryBool(r, "show_deleted"))
	if err != nil {
		return nil, err
	}
	return okRsp(g), nil
}

func (h *Handlers) familyGraph(r *http.Request) (*httpx.Response, error) {
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	g, aerr := h.engine.FamilyGraph(r.Context(), id)
	if aerr != nil {
		return nil, aerr
	}
	return okRsp(g), nil
}

func (h *Handlers) listTags(r *http.Request) (*httpx.Response, error) {
	tags, err := h.engine.AllTags(r.Context())
	if err != nil {
		return nil, err
	}
	return okRsp(tagsRsp{Tags: tags}), nil
}

func (h *Handlers) tagCounts(r *http.Request) (*httpx.Response, error) {
	counts, err := h.engine.TagCounts(r.Context())
	if err != nil {
		return nil, err
	}
	return okRsp(tagCountsRsp{Tags: counts}), nil
}

func (h *Handlers) recentDatasets(r *http.Request) (*httpx.Response, error) {
	list, err := h.engine.Recent(r.Context(), httpx.QueryInt(r, "limit", datasets.DefaultRecentLimit))
	if err != nil {
		return nil, err
	}
	return listRsp(list), nil
}

func (h *Handlers) myDatasets(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	list, aerr := h.engine.ByCreator(r.Context(), user)
	if aerr != nil {
		return nil, aerr
	}
	return listRsp(list), nil
}

func (h *Handlers) datasetStats(r *http.Request) (*httpx.Response, error) {
	since := h.engine.Now().Add(-datasets.StatsWindow)
	stats, err := h.engine.MonthlyCounts(r.Context(), since)
	if err != nil {
		return nil, err
	}
	return okRsp(stats), nil
}

func activityList(list []*models.Activity) *httpx.Response {
	if list == nil {
		list = []*models.Activity{}
	}
	return okRsp(activitiesRsp{Activities: list})
}

func (h *Handlers) listActivities(r *http.Request) (*httpx.Response, error) {
	list, err := h.engine.Activities().Recent(r.Context(), "", httpx.QueryInt(r, "limit", datasets.DefaultActivityLimit))
	if err != nil {
		return nil, err
	}
	return activityList(list), nil
}

func (h *Handlers) myActivities(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	list, aerr := h.engine.Activities().Recent(r.Context(), user, httpx.QueryInt(r, "limit", datasets.DefaultActivityLimit))
	if aerr != nil {
		return nil, aerr
	}
	return activityList(list), nil
}
