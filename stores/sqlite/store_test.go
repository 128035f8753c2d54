package sqlite

import (
	"context"
	"errors"
	"excalidraw-drawings/core"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	store.SetItem("excalidraw_access_key", "secret")
	store.Close()

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() on existing database failed: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.GetItem("excalidraw_access_key")
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if !ok || value != "secret" {
		t.Errorf("GetItem() = (%q, %v), want (secret, true)", value, ok)
	}
}

func TestItems(t *testing.T) {
	store := setupTestStore(t)

	if _, ok, err := store.GetItem("k"); err != nil || ok {
		t.Fatalf("GetItem() on empty store = (%v, %v)", ok, err)
	}

	if err := store.SetItem("k", "v1"); err != nil {
		t.Fatalf("SetItem() failed: %v", err)
	}
	if err := store.SetItem("k", "v2"); err != nil {
		t.Fatalf("SetItem() overwrite failed: %v", err)
	}

	value, ok, err := store.GetItem("k")
	if err != nil || !ok || value != "v2" {
		t.Errorf("GetItem() = (%q, %v, %v), want v2", value, ok, err)
	}

	if err := store.RemoveItem("k"); err != nil {
		t.Fatalf("RemoveItem() failed: %v", err)
	}
	if err := store.RemoveItem("k"); err != nil {
		t.Fatalf("RemoveItem() on absent key failed: %v", err)
	}
	if _, ok, _ := store.GetItem("k"); ok {
		t.Error("key present after RemoveItem()")
	}
}

func TestChangeListener_OtherTab(t *testing.T) {
	store := setupTestStore(t)
	other := store.Tab()

	var events []core.StorageEvent
	other.AddChangeListener("k", func(ev core.StorageEvent) { events = append(events, ev) })

	store.SetItem("k", "v")
	store.RemoveItem("k")
	store.RemoveItem("k")

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].NewValue != "v" || !events[1].Removed {
		t.Errorf("events mismatch: %+v", events)
	}
}

func TestDrawingLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	d := &core.RemoteDrawing{
		Name: "Architecture",
		Data: map[string]any{"elements": []any{map[string]any{"type": "rectangle"}}},
	}
	if err := store.CreateDrawing(ctx, d); err != nil {
		t.Fatalf("CreateDrawing() failed: %v", err)
	}
	if d.ID == "" || d.CreatedAt.IsZero() {
		t.Fatalf("CreateDrawing() did not assign id/timestamps: %+v", d)
	}

	got, err := store.GetDrawing(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDrawing() failed: %v", err)
	}
	if got.Name != "Architecture" {
		t.Errorf("name = %q", got.Name)
	}
	elements, ok := got.Data["elements"].([]any)
	if !ok || len(elements) != 1 {
		t.Errorf("data mismatch: %#v", got.Data)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
	}

	time.Sleep(5 * time.Millisecond)
	update := &core.RemoteDrawing{ID: d.ID, Name: "Renamed", Data: got.Data}
	if err := store.UpdateDrawing(ctx, update); err != nil {
		t.Fatalf("UpdateDrawing() failed: %v", err)
	}
	if !update.CreatedAt.Equal(d.CreatedAt) || !update.UpdatedAt.After(d.UpdatedAt) {
		t.Errorf("timestamps after update: created %v updated %v", update.CreatedAt, update.UpdatedAt)
	}

	if err := store.DeleteDrawing(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDrawing() failed: %v", err)
	}
	if _, err := store.GetDrawing(ctx, d.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetDrawing() after delete error = %v, want ErrNotFound", err)
	}
}

func TestNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpdateDrawing(ctx, &core.RemoteDrawing{ID: "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateDrawing() error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteDrawing(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteDrawing() error = %v, want ErrNotFound", err)
	}
}

func TestListDrawings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.CreateDrawing(ctx, &core.RemoteDrawing{Name: fmt.Sprintf("d%d", i)}); err != nil {
			t.Fatalf("CreateDrawing() failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	drawings, total, err := store.ListDrawings(ctx, 5, 0)
	if err != nil {
		t.Fatalf("ListDrawings() failed: %v", err)
	}
	if total != 3 || len(drawings) != 3 {
		t.Fatalf("ListDrawings() = %d items, total %d; want 3, 3", len(drawings), total)
	}
	if drawings[0].Name != "d2" || drawings[2].Name != "d0" {
		t.Errorf("order mismatch: %s, %s, %s", drawings[0].Name, drawings[1].Name, drawings[2].Name)
	}

	page, _, err := store.ListDrawings(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListDrawings() with offset failed: %v", err)
	}
	if len(page) != 1 || page[0].Name != "d0" {
		t.Errorf("offset page mismatch: %+v", page)
	}
}
