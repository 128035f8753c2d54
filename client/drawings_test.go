package client

import (
	"context"
	"encoding/json"
	"errors"
	"excalidraw-drawings/config"
	"excalidraw-drawings/core"
	"excalidraw-drawings/event"
	"excalidraw-drawings/handlers/api/drawings"
	"excalidraw-drawings/handlers/auth"
	"excalidraw-drawings/middleware"
	"excalidraw-drawings/state"
	"excalidraw-drawings/stores/memory"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const testKey = "s3cret"

// newAPI serves the drawings API the way the server binary does.
func newAPI(t *testing.T) (*httptest.Server, core.DrawingRepository) {
	t.Helper()
	repo := memory.NewStore()
	verifier := auth.NewVerifier(config.AuthConfig{AccessKey: testKey})

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthBearer(verifier, true, "/api/health"))
		r.Get("/health", auth.HandleHealth)
		r.Get("/auth/validate", auth.HandleValidate)
		r.Mount("/drawings", drawings.Routes(repo, nil))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

// newClient returns a client holding key plus the auth holder and the number
// of auth-required signals seen so far.
func newClient(t *testing.T, baseURL, key string) (*Client, *state.Auth, *int) {
	t.Helper()
	creds := state.NewAuth(memory.NewStore())
	t.Cleanup(creds.Close)
	if key != "" {
		require.NoError(t, creds.Set(key))
	}

	bus := event.NewBus()
	signals := new(int)
	bus.Subscribe(event.AuthRequired, func(event.Event) { *signals++ })

	return NewClient(baseURL, creds, bus, WithTimeout(5*time.Second)), creds, signals
}

func TestClient_CRUD(t *testing.T) {
	srv, _ := newAPI(t)
	c, _, _ := newClient(t, srv.URL+"/api", testKey)
	ctx := context.Background()

	created, err := c.Create(ctx, "Board", map[string]any{"elements": []any{}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Board", created.Name)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	name := "Renamed"
	updated, err := c.Update(ctx, created.ID, core.UpdateDrawingRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Contains(t, updated.Data, "elements")

	require.NoError(t, c.Delete(ctx, created.ID))

	_, err = c.Get(ctx, created.ID)
	require.ErrorIs(t, err, core.ErrFetchFailed)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "get", apiErr.Op)
	require.Equal(t, created.ID, apiErr.ID)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_ListScenario(t *testing.T) {
	srv, repo := newAPI(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateDrawing(context.Background(), &core.RemoteDrawing{Name: name, Data: map[string]any{}}))
	}
	c, _, _ := newClient(t, srv.URL+"/api", testKey)

	list, err := c.List(context.Background(), ListOptions{Limit: 5, Offset: 0})
	require.NoError(t, err)
	require.Len(t, list.Drawings, 3)
	require.Equal(t, int64(3), list.Total)
	require.Equal(t, 5, list.Limit)
	require.Equal(t, 0, list.Offset)
}

func TestClient_ListDefaults(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode(core.DrawingList{Drawings: []*core.RemoteDrawing{}, Limit: 10})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.List(context.Background(), ListOptions{Limit: 0, Offset: -3})
	require.NoError(t, err)
	require.Equal(t, "limit=10&offset=0", query)
}

func TestClient_BearerHeader(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c, creds, _ := newClient(t, srv.URL, "token-123")
	_, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer token-123", header)

	require.NoError(t, creds.Clear())
	_, err = c.Health(context.Background())
	require.NoError(t, err)
	require.Empty(t, header)
}

func TestClient_UnauthorizedOnEveryOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	name := "x"
	ops := map[string]func(*Client) error{
		"list": func(c *Client) error {
			_, err := c.List(context.Background(), ListOptions{})
			return err
		},
		"get": func(c *Client) error {
			_, err := c.Get(context.Background(), "id-1")
			return err
		},
		"create": func(c *Client) error {
			_, err := c.Create(context.Background(), "x", map[string]any{})
			return err
		},
		"update": func(c *Client) error {
			_, err := c.Update(context.Background(), "id-1", core.UpdateDrawingRequest{Name: &name})
			return err
		},
		"delete": func(c *Client) error {
			return c.Delete(context.Background(), "id-1")
		},
	}

	for op, call := range ops {
		t.Run(op, func(t *testing.T) {
			c, creds, signals := newClient(t, srv.URL, "stale-key")

			err := call(c)
			require.ErrorIs(t, err, core.ErrUnauthorized)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, op, apiErr.Op)
			require.Equal(t, http.StatusUnauthorized, apiErr.Status)

			_, ok := creds.Get()
			require.False(t, ok)
			require.False(t, creds.IsAuthenticated())
			require.Equal(t, 1, *signals)
		})
	}
}

func TestClient_UnauthorizedFromServer(t *testing.T) {
	srv, _ := newAPI(t)
	c, creds, signals := newClient(t, srv.URL+"/api", "wrong")

	_, err := c.List(context.Background(), ListOptions{})
	require.ErrorIs(t, err, core.ErrUnauthorized)
	require.False(t, creds.IsAuthenticated())
	require.Equal(t, 1, *signals)
}

func TestClient_OperationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, creds, signals := newClient(t, srv.URL, testKey)
	ctx := context.Background()

	_, err := c.List(ctx, ListOptions{})
	require.ErrorIs(t, err, core.ErrFetchFailed)
	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, core.ErrFetchFailed)
	_, err = c.Create(ctx, "a", map[string]any{})
	require.ErrorIs(t, err, core.ErrCreateFailed)
	_, err = c.Update(ctx, "a", core.UpdateDrawingRequest{Data: map[string]any{}})
	require.ErrorIs(t, err, core.ErrUpdateFailed)
	err = c.Delete(ctx, "a")
	require.ErrorIs(t, err, core.ErrDeleteFailed)
	require.NotErrorIs(t, err, core.ErrUnauthorized)

	require.True(t, creds.IsAuthenticated())
	require.Zero(t, *signals)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil, nil)
	err := c.Delete(context.Background(), "a")
	require.ErrorIs(t, err, core.ErrDeleteFailed)
}

func TestClient_TimeoutLeavesSharedClientAlone(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	shared := &http.Client{}
	orders := map[string][]Option{
		"timeout first": {WithTimeout(50 * time.Millisecond), WithHTTPClient(shared)},
		"client first":  {WithHTTPClient(shared), WithTimeout(50 * time.Millisecond)},
	}
	for name, opts := range orders {
		t.Run(name, func(t *testing.T) {
			c := NewClient(srv.URL, nil, nil, opts...)
			_, err := c.Get(context.Background(), "slow")
			require.ErrorIs(t, err, core.ErrFetchFailed)
			require.Zero(t, shared.Timeout)
		})
	}

	NewClient(srv.URL, nil, nil, WithTimeout(time.Second))
	require.Zero(t, http.DefaultClient.Timeout)
}

func TestClient_HealthAndValidate(t *testing.T) {
	srv, _ := newAPI(t)
	ctx := context.Background()

	c, _, _ := newClient(t, srv.URL+"/api", testKey)
	status, err := c.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", status)

	ok, err := c.ValidateAuth(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	bad, creds, signals := newClient(t, srv.URL+"/api", "wrong")
	status, err = bad.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", status)

	ok, err = bad.ValidateAuth(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, creds.IsAuthenticated())
	require.Equal(t, 1, *signals)
}

func TestError_Message(t *testing.T) {
	err := &Error{Op: "update", ID: "42", Status: 500, Err: core.ErrUpdateFailed}
	require.Equal(t, "update 42: status 500: failed to update drawing", err.Error())
}
