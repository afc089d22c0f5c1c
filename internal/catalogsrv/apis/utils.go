package apis

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/schemavalidator"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

const maxRequestBody = 1 << 20

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, ErrInvalidID.Msg("invalid " + name)
	}
	return id, nil
}

func currentUser(r *http.Request) (string, error) {
	username := catcommon.UsernameFromContext(r.Context())
	if username == "" {
		return "", httpx.ErrUnAuthorized()
	}
	return username, nil
}

// decodeRequest validates the body against schema, decodes it into data and
// runs the struct validators.
func decodeRequest(r *http.Request, schema *jsonschema.Schema, data any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return httpx.ErrInvalidRequest("empty request body")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return httpx.ErrUnableToReadRequest()
	}
	if msgs := schemavalidator.ValidateDocument(schema, body); len(msgs) > 0 {
		return ErrInvalidRequest.Msg(strings.Join(msgs, "; "))
	}
	if err := jsoniter.Unmarshal(body, data); err != nil {
		return httpx.ErrUnableToParseReqData()
	}
	if err := schemavalidator.V().Struct(data); err != nil {
		return ErrInvalidRequest.Msg(strings.Join(schemavalidator.ValidationErrors(err), "; "))
	}
	return nil
}
