package cli

import (
	"bytes"
	"context"
	"errors"
	"excalidraw-drawings/client"
	"excalidraw-drawings/config"
	"excalidraw-drawings/core"
	"excalidraw-drawings/handlers/api/drawings"
	"excalidraw-drawings/handlers/auth"
	"excalidraw-drawings/middleware"
	"excalidraw-drawings/state"
	"excalidraw-drawings/stores/memory"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T, baseURL string) (*CLI, *bytes.Buffer, core.Storage) {
	t.Helper()
	storage := memory.NewStore()
	app := newApp(storage, config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, state.FieldTheme)
	t.Cleanup(app.Close)

	out := &bytes.Buffer{}
	return NewCLI(app, nil, out), out, storage
}

func run(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	return c.ExecuteCommand(context.Background(), args)
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"list", []string{"list"}},
		{"rename 3   \"New Name\"", []string{"rename", "3", "New Name"}},
		{`new "  padded  "`, []string{"new", "  padded  "}},
		{`rename 1 ""`, []string{"rename", "1", ""}},
		{"remote\tlist 5 0", []string{"remote", "list", "5", "0"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, ParseArgs(tt.input))
		})
	}
}

func TestCLI_LocalDrawingFlow(t *testing.T) {
	c, out, storage := newTestCLI(t, "http://127.0.0.1:0")

	require.NoError(t, run(t, c, "list"))
	require.Contains(t, out.String(), "System Architecture Diagram")

	require.NoError(t, run(t, c, "new", "Sketch"))
	require.Contains(t, out.String(), "Created drawing 9 'Sketch'")

	file := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"elements":[{"id":"r1","type":"rectangle"}],"appState":{}}`), 0644))
	require.NoError(t, run(t, c, "save", "9", file))

	out.Reset()
	require.NoError(t, run(t, c, "open", "9"))
	require.Contains(t, out.String(), "1 elements")
	c.UpdatePrompt()
	require.Equal(t, "Sketch (offline)> ", c.Prompt)

	require.NoError(t, run(t, c, "rename", "9", "  Renamed  "))
	record, ok := c.App.Metadata.GetByID(9)
	require.True(t, ok)
	require.Equal(t, "Renamed", record.Name)

	err := run(t, c, "rename", "9", "   ")
	require.True(t, errors.Is(err, core.ErrValidation))

	require.NoError(t, run(t, c, "delete", "9"))
	_, present, err := storage.GetItem(core.ContentKey(9))
	require.NoError(t, err)
	require.False(t, present)
	c.UpdatePrompt()
	require.Equal(t, "(offline)> ", c.Prompt)

	require.True(t, errors.Is(run(t, c, "open", "9"), core.ErrNotFound))
}

func TestCLI_Export(t *testing.T) {
	c, out, _ := newTestCLI(t, "http://127.0.0.1:0")

	require.NoError(t, run(t, c, "export", "1"))
	require.Contains(t, out.String(), `"elements": []`)

	file := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, run(t, c, "export", "1", file))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), `"appState"`)
}

func TestCLI_UICommands(t *testing.T) {
	c, out, storage := newTestCLI(t, "http://127.0.0.1:0")

	require.NoError(t, run(t, c, "zoom", "900"))
	require.Equal(t, state.MaxZoom, c.App.UI.Get().Zoom)

	require.NoError(t, run(t, c, "theme"))
	require.Equal(t, state.ThemeDark, c.App.UI.Get().Theme)
	stored, ok, err := storage.GetItem(core.UIKeyPrefix + "theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", stored)

	require.Error(t, run(t, c, "theme", "sepia"))

	require.NoError(t, run(t, c, "tool", "rectangle"))
	require.NoError(t, run(t, c, "zen"))
	require.NoError(t, run(t, c, "grid"))
	require.NoError(t, run(t, c, "sidebar"))

	s := c.App.UI.Get()
	require.Equal(t, "rectangle", s.ActiveTool)
	require.True(t, s.ZenMode)
	require.True(t, s.GridMode)
	require.False(t, s.SidebarOpen)

	out.Reset()
	require.NoError(t, run(t, c, "ui", "reset"))
	require.Equal(t, state.DefaultUIState(), c.App.UI.Get())
	require.Contains(t, out.String(), "zoom: 100%")
}

func TestCLI_Errors(t *testing.T) {
	c, _, _ := newTestCLI(t, "http://127.0.0.1:0")

	require.EqualError(t, run(t, c, "bogus"), "unknown command: bogus")
	require.Error(t, run(t, c, "open", "abc"))
	require.Error(t, run(t, c, "new"))
	require.ErrorIs(t, run(t, c, "exit"), ErrExit)
	require.Error(t, c.ExecuteCommand(context.Background(), nil))
}

func TestCLI_Help(t *testing.T) {
	c, out, _ := newTestCLI(t, "http://127.0.0.1:0")

	require.NoError(t, run(t, c, "help"))
	require.Contains(t, out.String(), "remote")

	out.Reset()
	require.NoError(t, run(t, c, "help", "rename"))
	require.Contains(t, out.String(), "Syntax: rename <id> <name>")
}

func newRemote(t *testing.T, key string) string {
	t.Helper()
	verifier := auth.NewVerifier(config.AuthConfig{AccessKey: key})
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthBearer(verifier, true))
		r.Get("/auth/validate", auth.HandleValidate)
		r.Mount("/drawings", drawings.Routes(memory.NewStore(), nil))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func TestCLI_RemoteFlow(t *testing.T) {
	c, out, _ := newTestCLI(t, newRemote(t, "s3cret"))

	require.NoError(t, run(t, c, "login", "s3cret"))
	c.UpdatePrompt()
	require.Equal(t, "> ", c.Prompt)

	require.NoError(t, run(t, c, "remote", "create", "Shared board"))
	require.Contains(t, out.String(), "Shared board")

	list, err := c.App.Remote.List(context.Background(), client.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Drawings, 1)
	id := list.Drawings[0].ID

	require.NoError(t, run(t, c, "remote", "update", id, "--name", "Renamed board"))
	out.Reset()
	require.NoError(t, run(t, c, "remote", "list", "5", "0"))
	require.Contains(t, out.String(), "Renamed board")
	require.Contains(t, out.String(), "Showing 1 of 1 (limit 5, offset 0)")

	require.NoError(t, run(t, c, "remote", "delete", id))
	require.Error(t, run(t, c, "remote", "get", id))
}

func TestCLI_RemoteAuthRequired(t *testing.T) {
	c, out, _ := newTestCLI(t, newRemote(t, "s3cret"))

	require.NoError(t, run(t, c, "login", "stale"))
	err := run(t, c, "remote", "list")
	require.ErrorIs(t, err, core.ErrUnauthorized)
	require.Contains(t, out.String(), "Authentication required")
	require.False(t, c.App.Auth.IsAuthenticated())

	out.Reset()
	require.NoError(t, run(t, c, "whoami"))
	require.Contains(t, out.String(), "Not signed in")
}
