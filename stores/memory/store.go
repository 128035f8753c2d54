package memory

import (
	"context"
	"excalidraw-drawings/core"
	"excalidraw-drawings/stores/hub"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type data struct {
	mu       sync.RWMutex
	items    map[string]string
	drawings map[string]*core.RemoteDrawing
}

// memStore implements core.Storage and core.DrawingRepository in memory.
// Handles returned by Tab share data and change hub.
type memStore struct {
	data *data
	hub  *hub.Hub
	tab  string
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		data: &data{
			items:    make(map[string]string),
			drawings: make(map[string]*core.RemoteDrawing),
		},
		hub: hub.New(),
		tab: hub.NewTab(),
	}
}

func (s *memStore) Tab() core.Storage {
	return &memStore{data: s.data, hub: s.hub, tab: hub.NewTab()}
}

func (s *memStore) GetItem(key string) (string, bool, error) {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	value, ok := s.data.items[key]
	return value, ok, nil
}

func (s *memStore) SetItem(key, value string) error {
	s.data.mu.Lock()
	s.data.items[key] = value
	s.data.mu.Unlock()

	logrus.WithFields(logrus.Fields{"key": key, "data_length": len(value)}).Debug("Item stored")
	s.hub.Notify(s.tab, core.StorageEvent{Key: key, NewValue: value})
	return nil
}

func (s *memStore) RemoveItem(key string) error {
	s.data.mu.Lock()
	_, existed := s.data.items[key]
	delete(s.data.items, key)
	s.data.mu.Unlock()

	if existed {
		s.hub.Notify(s.tab, core.StorageEvent{Key: key, Removed: true})
	}
	return nil
}

func (s *memStore) AddChangeListener(key string, fn core.ChangeListener) func() {
	return s.hub.Listen(s.tab, key, fn)
}

// ListDrawings returns drawings ordered by UpdatedAt, newest first. Part of the DrawingRepository interface.
func (s *memStore) ListDrawings(ctx context.Context, limit, offset int) ([]*core.RemoteDrawing, int64, error) {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	all := make([]*core.RemoteDrawing, 0, len(s.data.drawings))
	for _, d := range s.data.drawings {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*core.RemoteDrawing{}, total, nil
	}
	end := len(all)
	if limit < end-offset {
		end = offset + limit
	}

	page := make([]*core.RemoteDrawing, 0, end-offset)
	for _, d := range all[offset:end] {
		page = append(page, copyDrawing(d))
	}

	logrus.WithFields(logrus.Fields{"limit": limit, "offset": offset}).Infof("Listed %d drawings", len(page))
	return page, total, nil
}

func (s *memStore) GetDrawing(ctx context.Context, id string) (*core.RemoteDrawing, error) {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	log := logrus.WithField("drawing_id", id)
	d, ok := s.data.drawings[id]
	if !ok {
		log.Warn("Drawing not found")
		return nil, fmt.Errorf("drawing %s: %w", id, core.ErrNotFound)
	}

	log.Info("Drawing retrieved successfully")
	return copyDrawing(d), nil
}

func (s *memStore) CreateDrawing(ctx context.Context, drawing *core.RemoteDrawing) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	now := time.Now().UTC()
	drawing.ID = ulid.Make().String()
	drawing.CreatedAt = now
	drawing.UpdatedAt = now
	s.data.drawings[drawing.ID] = copyDrawing(drawing)

	logrus.WithField("drawing_id", drawing.ID).Info("Drawing created successfully")
	return nil
}

func (s *memStore) UpdateDrawing(ctx context.Context, drawing *core.RemoteDrawing) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	log := logrus.WithField("drawing_id", drawing.ID)
	existing, ok := s.data.drawings[drawing.ID]
	if !ok {
		log.Warn("Drawing not found for update")
		return fmt.Errorf("drawing %s: %w", drawing.ID, core.ErrNotFound)
	}

	drawing.CreatedAt = existing.CreatedAt
	drawing.UpdatedAt = time.Now().UTC()
	s.data.drawings[drawing.ID] = copyDrawing(drawing)

	log.Info("Drawing updated successfully")
	return nil
}

func (s *memStore) DeleteDrawing(ctx context.Context, id string) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	log := logrus.WithField("drawing_id", id)
	if _, ok := s.data.drawings[id]; !ok {
		log.Warn("Drawing not found for deletion")
		return fmt.Errorf("drawing %s: %w", id, core.ErrNotFound)
	}

	delete(s.data.drawings, id)
	log.Info("Drawing deleted successfully")
	return nil
}

// copyDrawing detaches the stored drawing from the caller's struct. Data is
// shared; handlers never mutate it in place.
func copyDrawing(d *core.RemoteDrawing) *core.RemoteDrawing {
	c := *d
	return &c
}
