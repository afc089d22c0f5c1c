package apis

import (
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

type datasetListRsp struct {
	Datasets []*models.Dataset `json:"datasets"`
}

type datasetDetailRsp struct {
	Dataset  *models.Dataset   `json:"dataset"`
	Versions []*models.Dataset `json:"versions"`
	Lineage  []*models.Dataset `json:"lineage"`
}

func listRsp(list []*models.Dataset) *httpx.Response {
	if list == nil {
		list = []*models.Dataset{}
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   datasetListRsp{Datasets: list},
	}
}

func (h *Handlers) listDatasets(r *http.Request) (*httpx.Response, error) {
	list, err := h.engine.List(r.Context(), httpx.QueryBool(r, "show_deleted"))
	if err != nil {
		return nil, err
	}
	return listRsp(list), nil
}

// createDataset starts a new family, or adds a version when parent_id is set.
func (h *Handlers) createDataset(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	req := createDatasetReq{}
	if err := decodeRequest(r, createDatasetSchema, &req); err != nil {
		return nil, err
	}
	params := datasets.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		CreatedBy:   user,
	}
	if req.ParentID != "" {
		parentID, perr := uuid.Parse(req.ParentID)
		if perr != nil {
			return nil, ErrInvalidID.Msg("invalid parent_id")
		}
		params.ParentID = &parentID
	}
	d, aerr := h.engine.Create(r.Context(), params)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   path.Join(r.URL.Path, d.ID.String()),
		Response:   d,
	}, nil
}

func (h *Handlers) getDataset(r *http.Request) (*httpx.Response, error) {
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	ctx := r.Context()
	d, aerr := h.engine.Get(ctx, id)
	if aerr != nil {
		return nil, aerr
	}
	versions, aerr := h.engine.Versions(ctx, d.BaseName, httpx.QueryBool(r, "show_deleted"))
	if aerr != nil {
		return nil, aerr
	}
	lineage, aerr := h.engine.Lineage(ctx, d)
	if aerr != nil {
		return nil, aerr
	}
	if lineage == nil {
		lineage = []*models.Dataset{}
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: datasetDetailRsp{
			Dataset:  d,
			Versions: versions,
			Lineage:  lineage,
		},
	}, nil
}

func (h *Handlers) createVersion(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	req := createVersionReq{}
	if err := decodeRequest(r, createVersionSchema, &req); err != nil {
		return nil, err
	}
	d, aerr := h.engine.CreateVersion(r.Context(), id, req.Description, req.Tags, user)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   d,
	}, nil
}

func (h *Handlers) updateDataset(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	req := updateDatasetReq{}
	if err := decodeRequest(r, updateDatasetSchema, &req); err != nil {
		return nil, err
	}
	d, aerr := h.engine.UpdateMetadata(r.Context(), id, user, req.Description, req.Tags)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   d,
	}, nil
}

func (h *Handlers) deleteDataset(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	d, aerr := h.engine.SoftDelete(r.Context(), id, user)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   d,
	}, nil
}

func (h *Handlers) restoreDataset(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	d, aerr := h.engine.Restore(r.Context(), id, user)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   d,
	}, nil
}

func (h *Handlers) setProduction(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	req := productionReq{}
	if err := decodeRequest(r, productionSchema, &req); err != nil {
		return nil, err
	}
	d, aerr := h.engine.SetProduction(r.Context(), id, *req.Production, user)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   d,
	}, nil
}
