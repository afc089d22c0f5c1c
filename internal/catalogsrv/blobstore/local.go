package blobstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/common/httpx"
)

// LocalPathPrefix is where the server mounts a LocalStore.
const LocalPathPrefix = "/blobs/"

// LocalStore keeps objects on the local filesystem and serves them through
// HMAC-signed URLs. It is an http.Handler for LocalPathPrefix.
type LocalStore struct {
	root    string
	key     []byte
	baseURL string
	now     func() time.Time
}

func NewLocalStore(root, signingKey, baseURL string) (*LocalStore, error) {
	if root == "" || signingKey == "" {
		return nil, ErrBlobStore.Msg("local store requires a directory and a signing key")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ErrBlobStore.Err(err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, ErrBlobStore.MsgErr("unable to create blob directory", err)
	}
	return &LocalStore{
		root:    abs,
		key:     []byte(signingKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// cleanPath normalizes an object path. The result never escapes the root.
func cleanPath(p string) (string, error) {
	c := strings.TrimPrefix(path.Clean("/"+p), "/")
	if c == "" || c == "." {
		return "", ErrInvalidPath
	}
	return c, nil
}

func (s *LocalStore) file(p string) (string, error) {
	c, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(c)), nil
}

func (s *LocalStore) Put(ctx context.Context, p string, r io.Reader, contentType string) (int64, error) {
	dst, err := s.file(p)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, ErrBlobStore.MsgErr("unable to create object directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, ErrBlobStore.MsgErr("unable to create object", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, ErrBlobStore.MsgErr("unable to write object", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return 0, ErrBlobStore.MsgErr("unable to write object", err)
	}
	log.Ctx(ctx).Debug().Str("path", p).Int64("size", n).Str("content_type", contentType).Msg("stored object")
	return n, nil
}

func (s *LocalStore) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	src, err := s.file(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound.Err(err)
		}
		return nil, ErrBlobStore.Err(err)
	}
	return f, nil
}

func (s *LocalStore) sign(p string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(p))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *LocalStore) SignedURL(ctx context.Context, p string, validity time.Duration) (string, error) {
	c, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(validity).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(c, expires))
	u := url.URL{Path: LocalPathPrefix + c, RawQuery: q.Encode()}
	return s.baseURL + u.String(), nil
}

// verify checks the signature and expiry of a request path and query.
func (s *LocalStore) verify(p string, q url.Values) error {
	expires, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		return ErrInvalidSigned
	}
	want := s.sign(p, expires)
	if !hmac.Equal([]byte(want), []byte(q.Get("sig"))) {
		return ErrInvalidSigned
	}
	if s.now().Unix() > expires {
		return ErrInvalidSigned.Msg("link expired")
	}
	return nil
}

func (s *LocalStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httpx.ErrReqMethodNotSupported().Send(w)
		return
	}
	c, err := cleanPath(strings.TrimPrefix(r.URL.Path, LocalPathPrefix))
	if err != nil {
		httpx.ErrInvalidRequest("invalid object path").Send(w)
		return
	}
	if err := s.verify(c, r.URL.Query()); err != nil {
		log.Ctx(r.Context()).Info().Str("path", c).Msg("rejected signed url")
		httpx.ErrForbidden(err.Error()).Send(w)
		return
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(c)))
	if err != nil {
		httpx.SendError(w, ErrBlobNotFound)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		httpx.SendError(w, ErrBlobStore)
		return
	}
	name := path.Base(c)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

func (s *LocalStore) Close() error {
	return nil
}
