// Package client is the HTTP client of the remote drawings API.
//
// Every call carries the current credential as a bearer token. A 401 from any
// endpoint clears the credential and publishes event.AuthRequired before the
// call fails with an error wrapping core.ErrUnauthorized.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"excalidraw-drawings/core"
	"excalidraw-drawings/event"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	DefaultLimit   = 10
	DefaultTimeout = 30 * time.Second
)

type (
	// Credentials supplies the bearer token and forgets it once the server
	// rejects it. *state.Auth implements it.
	Credentials interface {
		Get() (string, bool)
		Clear() error
	}

	// Publisher receives the auth-required signal. *event.Bus implements it.
	Publisher interface {
		Publish(event.Event)
	}

	ListOptions struct {
		Limit  int
		Offset int
	}

	Option func(*Client)
)

// Error is returned by every failed call. Err wraps one of core.ErrUnauthorized,
// core.ErrFetchFailed, core.ErrCreateFailed, core.ErrUpdateFailed or
// core.ErrDeleteFailed.
type Error struct {
	Op     string
	ID     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ID != "" {
		b.WriteString(" " + e.ID)
	}
	if e.Status != 0 {
		b.WriteString(": status " + strconv.Itoa(e.Status))
	}
	b.WriteString(": " + e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	creds      Credentials
	publisher  Publisher
}

// WithHTTPClient sends requests through a copy of hc. hc itself is never
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every call. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:3002/api". creds and publisher may be nil.
func NewClient(baseURL string, creds Credentials, publisher Publisher, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		creds:      creds,
		publisher:  publisher,
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.httpClient
	hc.Timeout = c.timeout
	c.httpClient = &hc
	return c
}

// doRequest sends the request with the bearer header and handles 401.
func (c *Client) doRequest(ctx context.Context, op, id, method, path string, body any, failed error) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, ID: id, Err: fmt.Errorf("%w: marshal request body: %v", failed, err)}
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, &Error{Op: op, ID: id, Err: fmt.Errorf("%w: create request: %v", failed, err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if key, ok := c.creds.Get(); ok {
			(&oauth2.Token{AccessToken: key, TokenType: "Bearer"}).SetAuthHeader(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{"op": op, "id": id}).WithError(err).Warn("Request failed")
		return nil, &Error{Op: op, ID: id, Err: fmt.Errorf("%w: %v", failed, err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.authRequired(op)
		return nil, &Error{Op: op, ID: id, Status: resp.StatusCode, Err: core.ErrUnauthorized}
	}
	return resp, nil
}

func (c *Client) authRequired(op string) {
	logrus.WithField("op", op).Warn("Credential rejected, authentication required")
	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			logrus.WithError(err).Error("Failed to clear credential")
		}
	}
	if c.publisher != nil {
		c.publisher.Publish(event.Event{Type: event.AuthRequired})
	}
}

// decodeResponse closes the body and decodes it into target on success.
func decodeResponse(resp *http.Response, op, id string, failed error, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logrus.WithFields(logrus.Fields{"op": op, "id": id, "status": resp.StatusCode}).Debugf("API error: %s", body)
		return &Error{Op: op, ID: id, Status: resp.StatusCode, Err: failed}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return &Error{Op: op, ID: id, Status: resp.StatusCode, Err: fmt.Errorf("%w: decode response: %v", failed, err)}
		}
	}
	return nil
}

func drawingPath(id string) string {
	return "/drawings/" + url.PathEscape(id)
}

// List returns one page of drawings. A non-positive limit means DefaultLimit
// and a negative offset means 0.
func (c *Client) List(ctx context.Context, opts ListOptions) (*core.DrawingList, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(opts.Limit))
	query.Set("offset", strconv.Itoa(opts.Offset))

	resp, err := c.doRequest(ctx, "list", "", http.MethodGet, "/drawings?"+query.Encode(), nil, core.ErrFetchFailed)
	if err != nil {
		return nil, err
	}

	var result core.DrawingList
	if err := decodeResponse(resp, "list", "", core.ErrFetchFailed, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Get(ctx context.Context, id string) (*core.RemoteDrawing, error) {
	resp, err := c.doRequest(ctx, "get", id, http.MethodGet, drawingPath(id), nil, core.ErrFetchFailed)
	if err != nil {
		return nil, err
	}

	var result core.RemoteDrawing
	if err := decodeResponse(resp, "get", id, core.ErrFetchFailed, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Create(ctx context.Context, name string, data map[string]any) (*core.RemoteDrawing, error) {
	body := core.CreateDrawingRequest{Name: name, Data: data}
	resp, err := c.doRequest(ctx, "create", "", http.MethodPost, "/drawings", body, core.ErrCreateFailed)
	if err != nil {
		return nil, err
	}

	var result core.RemoteDrawing
	if err := decodeResponse(resp, "create", "", core.ErrCreateFailed, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update sends a partial update; nil fields of update are left unchanged.
func (c *Client) Update(ctx context.Context, id string, update core.UpdateDrawingRequest) (*core.RemoteDrawing, error) {
	resp, err := c.doRequest(ctx, "update", id, http.MethodPut, drawingPath(id), update, core.ErrUpdateFailed)
	if err != nil {
		return nil, err
	}

	var result core.RemoteDrawing
	if err := decodeResponse(resp, "update", id, core.ErrUpdateFailed, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, "delete", id, http.MethodDelete, drawingPath(id), nil, core.ErrDeleteFailed)
	if err != nil {
		return err
	}
	return decodeResponse(resp, "delete", id, core.ErrDeleteFailed, nil)
}

// Health reports the server status, "ok" when it is up.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, "health", "", http.MethodGet, "/health", nil, core.ErrFetchFailed)
	if err != nil {
		return "", err
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := decodeResponse(resp, "health", "", core.ErrFetchFailed, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

// ValidateAuth checks the current credential against the server. A rejected
// credential is handled like any other 401 and reported as (false, nil).
func (c *Client) ValidateAuth(ctx context.Context) (bool, error) {
	resp, err := c.doRequest(ctx, "validate", "", http.MethodGet, "/auth/validate", nil, core.ErrFetchFailed)
	if errors.Is(err, core.ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var result struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := decodeResponse(resp, "validate", "", core.ErrFetchFailed, &result); err != nil {
		return false, err
	}
	return result.Authenticated, nil
}
