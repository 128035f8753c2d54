package core

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength is the maximum number of characters kept in a drawing name.
const MaxNameLength = 100

type (
	// DrawingRecord is the metadata entry of a locally stored drawing.
	DrawingRecord struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// DrawingContent is the canvas data of one drawing. Elements, app state and
	// files are opaque to this package; they are owned by the whiteboard.
	DrawingContent struct {
		Elements []map[string]any `json:"elements"`
		AppState map[string]any   `json:"appState"`
		Files    map[string]any   `json:"files"`
	}

	// RemoteDrawing is the wire representation of a drawing served by the
	// drawings API.
	RemoteDrawing struct {
		ID        string         `json:"id"`
		Name      string         `json:"name"`
		Data      map[string]any `json:"data"`
		CreatedAt time.Time      `json:"created_at"`
		UpdatedAt time.Time      `json:"updated_at"`
	}

	// DrawingList is one page of remote drawings.
	DrawingList struct {
		Drawings []*RemoteDrawing `json:"drawings"`
		Total    int64            `json:"total"`
		Limit    int              `json:"limit"`
		Offset   int              `json:"offset"`
	}

	CreateDrawingRequest struct {
		Name string         `json:"name"`
		Data map[string]any `json:"data"`
	}

	// UpdateDrawingRequest carries a partial update; nil fields are left as they are.
	UpdateDrawingRequest struct {
		Name *string        `json:"name,omitempty"`
		Data map[string]any `json:"data,omitempty"`
	}

	// DrawingRepository persists remote drawings on the server side.
	DrawingRepository interface {
		// ListDrawings returns a page of drawings, most recently updated first,
		// and the total number of drawings.
		ListDrawings(ctx context.Context, limit, offset int) ([]*RemoteDrawing, int64, error)
		GetDrawing(ctx context.Context, id string) (*RemoteDrawing, error)
		// CreateDrawing assigns ID and timestamps to the drawing and stores it.
		CreateDrawing(ctx context.Context, drawing *RemoteDrawing) error
		// UpdateDrawing overwrites name and data and refreshes UpdatedAt.
		UpdateDrawing(ctx context.Context, drawing *RemoteDrawing) error
		DeleteDrawing(ctx context.Context, id string) error
	}
)

// DefaultContent returns the empty drawing.
func DefaultContent() DrawingContent {
	return DrawingContent{
		Elements: []map[string]any{},
		AppState: map[string]any{},
		Files:    map[string]any{},
	}
}

// WithDefaults returns c with nil elements, app state and files replaced by
// empty values.
func (c DrawingContent) WithDefaults() DrawingContent {
	if c.Elements == nil {
		c.Elements = []map[string]any{}
	}
	if c.AppState == nil {
		c.AppState = map[string]any{}
	}
	if c.Files == nil {
		c.Files = map[string]any{}
	}
	return c
}

// NormalizeName trims the name and truncates it to MaxNameLength characters.
// The boolean is false when nothing is left after trimming.
func NormalizeName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name, true
}

// ContentKey is the storage key of the content of drawing id.
func ContentKey(id int64) string {
	return ContentKeyPrefix + strconv.FormatInt(id, 10)
}
