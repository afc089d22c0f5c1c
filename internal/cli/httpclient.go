package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
)

// APIPrefix is where the server mounts the API key authenticated surface.
const APIPrefix = "/api"

const (
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
	defaultTimeout  = 5 * time.Minute
)

// HTTPError represents an error response from the server with a status code
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// HTTPClient makes API key authenticated requests to the catalog server.
// Transport errors and 5xx responses are retried with backoff.
type HTTPClient struct {
	config     *Config
	httpClient *http.Client
	attempts   uint
	delay      time.Duration
}

func NewHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
		attempts:   defaultAttempts,
		delay:      defaultDelay,
	}
}

// RequestOptions contains options for making HTTP requests. When Body is
// set it is called once per attempt and must return a fresh reader.
type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        func() (io.Reader, string, error)
}

// JSONBody returns a request body producer for a JSON document.
func JSONBody(data []byte) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		return bytes.NewReader(data), "application/json", nil
	}
}

func (c *HTTPClient) buildURL(opts RequestOptions) (string, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, APIPrefix, opts.Path)
	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DoRequest sends the request and returns the response body and the
// Location header.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error) {
	target, err := c.buildURL(opts)
	if err != nil {
		return nil, "", err
	}

	var body []byte
	var location string
	err = retry.Do(func() error {
		body, location, err = c.do(ctx, opts, target)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
	)
	if err != nil {
		return nil, "", err
	}
	return body, location, nil
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *HTTPClient) do(ctx context.Context, opts RequestOptions, target string) ([]byte, string, error) {
	var reqBody io.Reader
	contentType := ""
	if opts.Body != nil {
		r, ct, err := opts.Body()
		if err != nil {
			return nil, "", retry.Unrecoverable(err)
		}
		reqBody, contentType = r, ct
		if closer, ok := r.(io.Closer); ok {
			defer closer.Close()
		}
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, target, reqBody)
	if err != nil {
		return nil, "", retry.Unrecoverable(fmt.Errorf("failed to create request: %v", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-API-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = string(body)
		}
		if msg == "" {
			msg = resp.Status
		}
		return nil, "", &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	return body, resp.Header.Get("Location"), nil
}

func (c *HTTPClient) Get(ctx context.Context, p string, query map[string]string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: p, QueryParams: query})
	return body, err
}

func (c *HTTPClient) Post(ctx context.Context, p string, data []byte) ([]byte, error) {
	opts := RequestOptions{Method: http.MethodPost, Path: p}
	if data != nil {
		opts.Body = JSONBody(data)
	}
	body, _, err := c.DoRequest(ctx, opts)
	return body, err
}

func (c *HTTPClient) Put(ctx context.Context, p string, data []byte) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodPut, Path: p, Body: JSONBody(data)})
	return body, err
}
