// Package client talks to the kanban REST API. It implements the remote
// side of every mutation and the fetcher behind the entity store.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-client/wire"
)

const (
	maxResponseSize = 4 << 20
	defaultPerPage  = 100
	maxPages        = 1000
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// StatusCode returns the HTTP status of the response.
func (e *APIError) StatusCode() int { return e.Status }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client wraps http.Client with the API's envelope, auth and header
// conventions.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	// Retries is how many times a create is resent after a transport error.
	// The idempotency key makes the resend safe.
	Retries int
	// PerPage is the page size requested when reading collections.
	PerPage int

	log *log.Logger
}

// New creates a client for baseURL. An empty token sends no Authorization
// header.
func New(baseURL, token string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Retries: 2,
		PerPage: defaultPerPage,
		log:     logger,
	}
}

type request struct {
	method  string
	path    string
	query   url.Values
	headers map[string]string
	body    any
}

// call sends req and decodes the envelope's data into T.
func call[T any](ctx context.Context, c *Client, req request) (T, *wire.Paginate, error) {
	var zero T
	var payload []byte
	if req.body != nil {
		var err error
		payload, err = sonic.Marshal(req.body)
		if err != nil {
			return zero, nil, fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
	}

	target := c.BaseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	attempts := 1
	if req.headers[wire.HeaderIdempotencyKey] != "" {
		attempts += c.Retries
	}

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, req.method, target, bytes.NewReader(payload))
		if err != nil {
			return zero, nil, err
		}
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		httpReq.Header.Set("Accept", "application/json")
		if c.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.Token)
		}
		for k, v := range req.headers {
			if v != "" {
				httpReq.Header.Set(k, v)
			}
		}

		resp, err = c.HTTP.Do(httpReq)
		if err == nil {
			break
		}
		if attempt >= attempts || ctx.Err() != nil {
			return zero, nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
		}
		c.log.WithError(err).WithFields(log.Fields{
			"method":  req.method,
			"path":    req.path,
			"attempt": attempt,
		}).Warn("client.retry")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return zero, nil, fmt.Errorf("read %s %s: %w", req.method, req.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: req.method, Path: req.path, Status: resp.StatusCode}
		var body wire.ErrorBody
		if len(data) > 0 && sonic.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Message
		}
		return zero, nil, apiErr
	}
	if resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return zero, nil, nil
	}

	var env wire.Envelope[T]
	if err := sonic.Unmarshal(data, &env); err != nil {
		return zero, nil, fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return env.Data, env.Paginate, nil
}

// callAll follows pagination until every item has been read.
func callAll[T any](ctx context.Context, c *Client, req request) ([]T, error) {
	perPage := c.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	var out []T
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		for k, v := range req.query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))
		req.query = q

		items, pg, err := call[[]T](ctx, c, req)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if pg == nil || len(items) == 0 || len(out) >= pg.Total {
			break
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func newIdempotencyKey() string {
	return uuid.NewString()
}

func pathID(prefix string, id fmt.Stringer) string {
	return prefix + "/" + url.PathEscape(id.String())
}
