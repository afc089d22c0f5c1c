package apis

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

const maxFormField = 64 << 10

type fileListRsp struct {
	Files []models.FileInfo `json:"files"`
}

// readErrRecorder remembers the first error returned by the wrapped reader so
// that a body size violation can be told apart from a storage failure.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (rr *readErrRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}

func (h *Handlers) listFiles(r *http.Request) (*httpx.Response, error) {
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	d, aerr := h.engine.Get(r.Context(), id)
	if aerr != nil {
		return nil, aerr
	}
	files := d.Files
	if files == nil {
		files = []models.FileInfo{}
	}
	return okRsp(fileListRsp{Files: files}), nil
}

// uploadFile streams a multipart upload into the object store. Form fields
// description and tags must precede the file part; fields after it are ignored.
func (h *Handlers) uploadFile(r *http.Request) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	id, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	r.Body = http.MaxBytesReader(nil, r.Body, h.opts.MaxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrInvalidRequest.Msg("expected a multipart/form-data body")
	}

	params := datasets.UploadParams{DatasetID: id, UploadedBy: user}
	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			return nil, ErrInvalidRequest.Msg("missing file part")
		}
		if perr != nil {
			return nil, uploadReadError(perr)
		}
		switch part.FormName() {
		case "description":
			v, ferr := readField(part)
			if ferr != nil {
				return nil, uploadReadError(ferr)
			}
			params.Description = v
		case "tags":
			v, ferr := readField(part)
			if ferr != nil {
				return nil, uploadReadError(ferr)
			}
			params.Tags = datasets.SplitTags(v)
		case "file":
			return h.storeUpload(r, params, part)
		}
		part.Close()
	}
}

func (h *Handlers) storeUpload(r *http.Request, params datasets.UploadParams, part *multipart.Part) (*httpx.Response, error) {
	defer part.Close()
	params.Filename = part.FileName()
	params.ContentType = part.Header.Get("Content-Type")
	body := &readErrRecorder{r: part}
	info, aerr := h.engine.Upload(r.Context(), params, body)
	if aerr != nil {
		if body.err != nil {
			log.Ctx(r.Context()).Warn().Err(body.err).Str("filename", params.Filename).Msg("upload aborted")
			return nil, uploadReadError(body.err)
		}
		return nil, ToHttpxError(aerr)
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   info,
	}, nil
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFormField))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ToHttpxError(ErrFileTooLarge)
	}
	return httpx.ErrUnableToReadRequest()
}

func (h *Handlers) downloadLink(r *http.Request) (*httpx.Response, error) {
	return h.fileLink(r, h.opts.DownloadValidity, false)
}

func (h *Handlers) directLink(r *http.Request) (*httpx.Response, error) {
	return h.fileLink(r, h.opts.DirectLinkValidity, true)
}

func (h *Handlers) fileLink(r *http.Request, validity time.Duration, direct bool) (*httpx.Response, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	datasetID, err := idParam(r, "datasetID")
	if err != nil {
		return nil, err
	}
	fileID, err := idParam(r, "fileID")
	if err != nil {
		return nil, err
	}
	if fileID == uuid.Nil {
		return nil, ErrInvalidID.Msg("invalid fileID")
	}
	link, aerr := h.engine.DownloadURL(r.Context(), datasetID, fileID, validity, user, direct)
	if aerr != nil {
		return nil, aerr
	}
	return okRsp(link), nil
}
