package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	testDatasetID = "6b1d1f0e-9a43-4a50-9c2e-9fd5c1b6a001"
	testFileID    = "0b0f6f4c-8a8d-4d4e-9a5b-3f1b2f0c9e11"
	salesJSON     = `{"id":"` + testDatasetID + `","name":"Sales","version":1,"base_name":"Sales","tags":["finance"],"created_by":"alice","is_production":true}`
)

type recorded struct {
	method      string
	path        string
	query       string
	contentType string
	body        []byte
}

type fakeCatalog struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{}
	fc.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		defer fc.mu.Unlock()
		fc.requests = append(fc.requests, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"result":0,"error":"invalid API key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		p := strings.TrimPrefix(r.URL.Path, "/api/datasets")
		switch {
		case p == "" && r.Method == http.MethodGet, p == "/search":
			w.Write([]byte(`{"datasets":[` + salesJSON + `]}`))
		case p == "" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(salesJSON))
		case p == "/lineage":
			w.Write([]byte(`{"nodes":[{"id":"a","name":"Sales"},{"id":"b","name":"Sales v2"}],"edges":[{"source":"a","target":"b"},{"source":"gone","target":"a"}]}`))
		case p == "/tags":
			w.Write([]byte(`{"tags":["climate","finance"]}`))
		case p == "/"+testDatasetID:
			w.Write([]byte(`{"dataset":` + salesJSON + `,"versions":[` + salesJSON + `],"lineage":[]}`))
		case p == "/"+testDatasetID+"/files" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"` + testFileID + `","filename":"rows.csv","size_kb":0.01}`))
		case p == "/"+testDatasetID+"/files/"+testFileID+"/direct-link":
			w.Write([]byte(`{"url":"http://catalog.test/blobs/x","filename":"rows.csv","valid_hours":5}`))
		case strings.HasPrefix(p, "/"+testDatasetID+"/"):
			w.Write([]byte(salesJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"result":0,"error":"dataset not found"}`))
		}
	}))
	t.Cleanup(fc.Close)
	return fc
}

func (fc *fakeCatalog) last(t *testing.T) recorded {
	t.Helper()
	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.NotEmpty(t, fc.requests)
	return fc.requests[len(fc.requests)-1]
}

func writeTestConfig(t *testing.T, server string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, (&Config{Version: configVersion, Server: server, APIKey: "test-key"}).WriteConfig(file))
	return file
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDatasetCommands(t *testing.T) {
	fc := newFakeCatalog(t)
	cfg := writeTestConfig(t, fc.URL)

	out, err := runCLI(t, "--config", cfg, "datasets", "list", "--deleted")
	require.NoError(t, err)
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "production")
	assert.Equal(t, "show_deleted=true", fc.last(t).query)

	out, err = runCLI(t, "--config", cfg, "datasets", "create", "--name", "Sales", "--description", "monthly", "--tags", "finance, monthly")
	require.NoError(t, err)
	assert.Contains(t, out, "Created Sales")
	req := fc.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.JSONEq(t, `{"name":"Sales","description":"monthly","tags":["finance","monthly"]}`, string(req.body))

	_, err = runCLI(t, "--config", cfg, "datasets", "new-version", testDatasetID)
	require.NoError(t, err)
	req = fc.last(t)
	assert.Equal(t, "/api/datasets/"+testDatasetID+"/versions", req.path)
	assert.JSONEq(t, `{}`, string(req.body))

	_, err = runCLI(t, "--config", cfg, "datasets", "set-production", testDatasetID)
	require.NoError(t, err)
	req = fc.last(t)
	assert.Equal(t, "/api/datasets/"+testDatasetID+"/production", req.path)
	assert.JSONEq(t, `{"production":true}`, string(req.body))

	_, err = runCLI(t, "--config", cfg, "datasets", "unset-production", testDatasetID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"production":false}`, string(fc.last(t).body))

	_, err = runCLI(t, "--config", cfg, "datasets", "delete", testDatasetID)
	require.NoError(t, err)
	assert.Equal(t, "/api/datasets/"+testDatasetID+"/delete", fc.last(t).path)

	_, err = runCLI(t, "--config", cfg, "datasets", "update", testDatasetID, "--description", "new text")
	require.NoError(t, err)
	req = fc.last(t)
	assert.Equal(t, http.MethodPut, req.method)
	assert.JSONEq(t, `{"description":"new text"}`, string(req.body))

	_, err = runCLI(t, "--config", cfg, "datasets", "search", "sales", "tag:finance")
	require.NoError(t, err)
	assert.Contains(t, fc.last(t).query, "query=sales+tag%3Afinance")

	out, err = runCLI(t, "--config", cfg, "datasets", "lineage")
	require.NoError(t, err)
	assert.Contains(t, out, "Sales -> Sales v2")
	assert.Contains(t, out, "gone -> Sales")

	_, err = runCLI(t, "--config", cfg, "datasets", "get", "6b1d1f0e-9a43-4a50-9c2e-000000000000")
	require.Error(t, err)
	assert.Equal(t, "dataset not found", err.Error())
}

func TestOutputFormats(t *testing.T) {
	fc := newFakeCatalog(t)
	cfg := writeTestConfig(t, fc.URL)

	out, err := runCLI(t, "--config", cfg, "--json", "datasets", "get", testDatasetID)
	require.NoError(t, err)
	assert.Equal(t, "Sales", gjson.Get(out, "dataset.name").String())

	out, err = runCLI(t, "--config", cfg, "--yaml", "tags")
	require.NoError(t, err)
	assert.Equal(t, "tags:\n- climate\n- finance\n", out)

	out, err = runCLI(t, "--config", cfg, "tags")
	require.NoError(t, err)
	assert.Equal(t, "climate\nfinance\n", out)

	_, err = runCLI(t, "--config", cfg, "--json", "--yaml", "tags")
	assert.Error(t, err)
}

func TestCreateFromFile(t *testing.T) {
	fc := newFakeCatalog(t)
	cfg := writeTestConfig(t, fc.URL)
	def := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(def, []byte("name: Weather\ndescription: daily readings\ntags:\n  - climate\nowner: ignored\n"), 0o600))

	_, err := runCLI(t, "--config", cfg, "datasets", "create", "-f", def, "--parent", testDatasetID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Weather","description":"daily readings","tags":["climate"],"parent_id":"`+testDatasetID+`"}`,
		string(fc.last(t).body))
}

func TestFileCommands(t *testing.T) {
	fc := newFakeCatalog(t)
	cfg := writeTestConfig(t, fc.URL)
	file := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(file, []byte("id,amount\n1,10\n"), 0o600))

	out, err := runCLI(t, "--config", cfg, "files", "upload", testDatasetID, file, "--description", "raw rows", "--tags", "raw")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded rows.csv")
	req := fc.last(t)
	assert.True(t, strings.HasPrefix(req.contentType, "multipart/form-data"), req.contentType)
	assert.Contains(t, string(req.body), `name="description"`)
	assert.Contains(t, string(req.body), "raw rows")
	assert.Contains(t, string(req.body), `filename="rows.csv"`)
	assert.Contains(t, string(req.body), "id,amount\n1,10\n")

	out, err = runCLI(t, "--config", cfg, "files", "link", testDatasetID, testFileID, "--direct")
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.test/blobs/x (valid for 5 hours)\n", out)

	_, err = runCLI(t, "--config", cfg, "files", "upload", testDatasetID, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cli", "config.yaml")

	_, err := runCLI(t, "--config", file, "datasets", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config create")

	out, err := runCLI(t, "--config", file, "config", "create", "--server", "localhost:8194", "--api-key", "k1")
	require.NoError(t, err)
	assert.Contains(t, out, file)

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8194", cfg.Server)
	assert.Equal(t, "k1", cfg.APIKey)

	out, err = runCLI(t, "--config", file, "--json", "config", "show")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8194", gjson.Get(out, "server").String())

	out, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "catalog-cli "+cliVersion+"\n", out)
}
