package apis

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/datacatalog/internal/catalogsrv/blobstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/memstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
)

const testUserHeader = "X-Test-User"

// fakeAuth stands in for the session middleware: the caller is whoever the
// test header names.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := r.Header.Get(testUserHeader); u != "" {
			r = r.WithContext(catcommon.WithUserContext(r.Context(), &catcommon.UserContext{
				Username:   u,
				AuthMethod: catcommon.AuthMethodSession,
			}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	store := memstore.New()
	blobs, err := blobstore.NewLocalStore(t.TempDir(), "test-signing-key", "http://catalog.test")
	require.NoError(t, err)
	h := NewHandlers(datasets.NewEngine(store, blobs, datasets.Options{}), opts)
	router := chi.NewRouter()
	router.Use(fakeAuth)
	router.Mount("/datasets", h.DatasetRouter())
	router.Mount("/activities", h.ActivityRouter())
	return router
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, jsoniter.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createDataset(t *testing.T, h http.Handler, user string, body map[string]any) *models.Dataset {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/datasets", user, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*models.Dataset](t, rec)
}

func TestDatasetLifecycle(t *testing.T) {
	h := newTestRouter(t, Options{})

	d := createDataset(t, h, "alice", map[string]any{
		"name": "Sales", "description": "monthly sales", "tags": []string{"finance", "monthly"},
	})
	assert.Equal(t, "Sales", d.BaseName)
	assert.Equal(t, 1, d.Version)

	rec := do(t, h, http.MethodPost, "/datasets/"+d.ID.String()+"/versions", "alice", map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v2 := decode[*models.Dataset](t, rec)
	assert.Equal(t, "Sales v2", v2.Name)
	assert.Equal(t, "monthly sales", v2.Description)

	rec = do(t, h, http.MethodGet, "/datasets/"+v2.ID.String(), "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[datasetDetailRsp](t, rec)
	assert.Len(t, detail.Versions, 2)
	require.Len(t, detail.Lineage, 1)
	assert.Equal(t, d.ID, detail.Lineage[0].ID)

	rec = do(t, h, http.MethodPut, "/datasets/"+d.ID.String(), "alice", map[string]any{
		"description": "monthly sales figures", "tags": []string{"finance"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "monthly sales figures", decode[*models.Dataset](t, rec).Description)

	rec = do(t, h, http.MethodPut, "/datasets/"+d.ID.String(), "bob", map[string]any{"description": "mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/datasets/"+v2.ID.String()+"/production", "alice", map[string]any{"production": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[*models.Dataset](t, rec).IsProduction)

	rec = do(t, h, http.MethodPost, "/datasets/"+d.ID.String()+"/delete", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[*models.Dataset](t, rec).IsDeleted)

	rec = do(t, h, http.MethodGet, "/datasets", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[datasetListRsp](t, rec).Datasets, 1)
	rec = do(t, h, http.MethodGet, "/datasets?show_deleted=true", "alice", nil)
	assert.Len(t, decode[datasetListRsp](t, rec).Datasets, 2)

	rec = do(t, h, http.MethodPost, "/datasets/"+d.ID.String()+"/restore", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/datasets/"+d.ID.String()+"/restore", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/activities/mine", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[activitiesRsp](t, rec).Activities)
}

func TestRequestErrors(t *testing.T) {
	h := newTestRouter(t, Options{})
	d := createDataset(t, h, "alice", map[string]any{"name": "Weather"})

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
	}{
		{"anonymous create", http.MethodPost, "/datasets", "", map[string]any{"name": "x"}, http.StatusUnauthorized},
		{"empty body", http.MethodPost, "/datasets", "alice", nil, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/datasets", "alice", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/datasets", "alice", map[string]any{"name": "x", "owner": "y"}, http.StatusBadRequest},
		{"bad parent id", http.MethodPost, "/datasets", "alice", map[string]any{"parent_id": "nope"}, http.StatusBadRequest},
		{"bad name", http.MethodPost, "/datasets", "alice", map[string]any{"name": "!!"}, http.StatusBadRequest},
		{"duplicate name", http.MethodPost, "/datasets", "alice", map[string]any{"name": "Weather"}, http.StatusConflict},
		{"bad id", http.MethodGet, "/datasets/not-a-uuid", "alice", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/datasets/6b1d1f0e-9a43-4a50-9c2e-9fd5c1b6a001", "alice", nil, http.StatusNotFound},
		{"missing production flag", http.MethodPost, "/datasets/" + d.ID.String() + "/production", "alice", map[string]any{}, http.StatusBadRequest},
		{"empty description", http.MethodPut, "/datasets/" + d.ID.String(), "alice", map[string]any{"description": ""}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSearchAndBrowse(t *testing.T) {
	h := newTestRouter(t, Options{})
	createDataset(t, h, "alice", map[string]any{"name": "Sales", "tags": []string{"finance"}})
	createDataset(t, h, "bob", map[string]any{"name": "Weather", "tags": []string{"climate"}})

	rec := do(t, h, http.MethodGet, "/datasets/search?query=tag:finance", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[searchRsp](t, rec)
	assert.Equal(t, "tag:finance", result.Query)
	require.Len(t, result.Datasets, 1)
	assert.Equal(t, "Sales", result.Datasets[0].Name)

	rec = do(t, h, http.MethodGet, "/datasets/search", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[searchRsp](t, rec).Datasets)

	rec = do(t, h, http.MethodGet, "/datasets/tags", "alice", nil)
	assert.Equal(t, []string{"climate", "finance"}, decode[tagsRsp](t, rec).Tags)

	rec = do(t, h, http.MethodGet, "/datasets/mine", "bob", nil)
	mine := decode[datasetListRsp](t, rec).Datasets
	require.Len(t, mine, 1)
	assert.Equal(t, "Weather", mine[0].Name)

	rec = do(t, h, http.MethodGet, "/datasets/recent?limit=1", "bob", nil)
	assert.Len(t, decode[datasetListRsp](t, rec).Datasets, 1)

	rec = do(t, h, http.MethodGet, "/datasets/lineage", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[datasets.Graph](t, rec).Nodes, 2)

	rec = do(t, h, http.MethodGet, "/datasets/stats", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[datasets.MonthlyStats](t, rec)
	assert.Equal(t, len(stats.Labels), len(stats.Values))
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, path, user string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(testUserHeader, user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFileEndpoints(t *testing.T) {
	h := newTestRouter(t, Options{})
	d := createDataset(t, h, "alice", map[string]any{"name": "Sales"})
	filesPath := "/datasets/" + d.ID.String() + "/files"

	body, ct := multipartBody(t, map[string]string{"description": "raw export", "tags": "raw, csv"},
		"export.csv", "text/csv", []byte("a,b\n1,2\n"))
	rec := upload(t, h, filesPath, "alice", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decode[models.FileInfo](t, rec)
	assert.Equal(t, "export.csv", info.Filename)
	assert.Equal(t, "raw export", info.Description)
	assert.Equal(t, []string{"raw", "csv"}, info.Tags)
	assert.Equal(t, int64(8), info.SizeBytes)

	rec = do(t, h, http.MethodGet, filesPath, "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decode[fileListRsp](t, rec).Files
	require.Len(t, files, 1)
	assert.Equal(t, info.ID, files[0].ID)

	rec = do(t, h, http.MethodGet, filesPath+"/"+info.ID.String()+"/download", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link := decode[datasets.DownloadLink](t, rec)
	assert.True(t, strings.HasPrefix(link.URL, "http://catalog.test"), link.URL)
	assert.Equal(t, 1, link.ValidHours)

	rec = do(t, h, http.MethodGet, filesPath+"/"+info.ID.String()+"/direct-link", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[datasets.DownloadLink](t, rec).ValidHours)

	rec = do(t, h, http.MethodGet, filesPath+"/6b1d1f0e-9a43-4a50-9c2e-9fd5c1b6a001/download", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct = multipartBody(t, nil, "other.csv", "text/csv", []byte("x"))
	rec = upload(t, h, filesPath, "bob", body, ct)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body, ct = multipartBody(t, map[string]string{"description": "no file"}, "", "", nil)
	rec = upload(t, h, filesPath, "alice", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, filesPath, "alice", map[string]any{"file": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	h := newTestRouter(t, Options{MaxUploadSize: 1024})
	d := createDataset(t, h, "alice", map[string]any{"name": "Big"})

	body, ct := multipartBody(t, nil, "big.bin", "application/x-big", bytes.Repeat([]byte("x"), 8192))
	rec := upload(t, h, "/datasets/"+d.ID.String()+"/files", "alice", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/datasets/"+d.ID.String()+"/files", "alice", nil)
	assert.Empty(t, decode[fileListRsp](t, rec).Files)
}
