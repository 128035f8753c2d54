package state

import (
	"bytes"
	"encoding/json"
	"excalidraw-drawings/core"
	"excalidraw-drawings/event"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ContentStore persists the content of drawings, one storage key per drawing,
// and holds the content of the drawing that is currently open.
type ContentStore struct {
	storage     core.Storage
	bus         *event.Bus
	current     *Value[core.DrawingContent]
	unsubscribe func()
}

// NewContentStore creates the store and subscribes it to drawing removals on bus.
func NewContentStore(storage core.Storage, bus *event.Bus) *ContentStore {
	s := &ContentStore{
		storage: storage,
		bus:     bus,
		current: NewValue(core.DefaultContent()),
	}
	s.unsubscribe = bus.Subscribe(event.DrawingRemoved, func(e event.Event) {
		id, ok := e.Data.(int64)
		if !ok {
			return
		}
		s.Delete(id)
	})
	return s
}

// Save writes content under the drawing's key, makes it the current content
// and announces event.ContentSaved. Nothing is published when the write fails.
// Nil fields are stored as empty values.
func (s *ContentStore) Save(id int64, content core.DrawingContent) error {
	log := logrus.WithField("drawing_id", id)
	content = content.WithDefaults()

	data, err := json.Marshal(content)
	if err != nil {
		log.WithError(err).Error("Failed to serialize drawing")
		return fmt.Errorf("%w: serialize drawing %d: %v", core.ErrStorage, id, err)
	}
	if err := s.storage.SetItem(core.ContentKey(id), string(data)); err != nil {
		log.WithError(err).Error("Failed to save drawing")
		return fmt.Errorf("%w: save drawing %d: %v", core.ErrStorage, id, err)
	}

	s.current.Set(content)
	log.WithField("data_length", len(data)).Debug("Drawing saved")
	s.bus.Publish(event.Event{Type: event.ContentSaved, Data: id})
	return nil
}

// Load reads the content of drawing id and makes it current. Absent content
// yields the default. Corrupt content is deleted and replaced by the default.
func (s *ContentStore) Load(id int64) core.DrawingContent {
	log := logrus.WithField("drawing_id", id)
	content := core.DefaultContent()

	raw, ok, err := s.storage.GetItem(core.ContentKey(id))
	switch {
	case err != nil:
		log.WithError(err).Error("Failed to read drawing")
	case ok:
		parsed, err := decodeContent(raw)
		if err != nil {
			log.WithError(err).Warn("Discarding corrupt drawing content")
			if err := s.storage.RemoveItem(core.ContentKey(id)); err != nil {
				log.WithError(err).Error("Failed to remove corrupt drawing content")
			}
		} else {
			content = parsed
		}
	}

	s.current.Set(content)
	return content
}

// Delete removes the stored content of drawing id. Deleting absent content is
// not an error.
func (s *ContentStore) Delete(id int64) error {
	if err := s.storage.RemoveItem(core.ContentKey(id)); err != nil {
		logrus.WithField("drawing_id", id).WithError(err).Error("Failed to delete drawing")
		return fmt.Errorf("%w: delete drawing %d: %v", core.ErrStorage, id, err)
	}
	logrus.WithField("drawing_id", id).Debug("Drawing content deleted")
	return nil
}

func (s *ContentStore) Current() core.DrawingContent {
	return s.current.Get()
}

// Clear resets the current content without touching storage.
func (s *ContentStore) Clear() {
	s.current.Set(core.DefaultContent())
}

func (s *ContentStore) Subscribe(fn func(core.DrawingContent)) func() {
	return s.current.Subscribe(fn)
}

// Close unsubscribes the store from the bus.
func (s *ContentStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// decodeContent parses stored content; elements must be a JSON array.
func decodeContent(raw string) (core.DrawingContent, error) {
	var shape struct {
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return core.DrawingContent{}, fmt.Errorf("%w: %v", core.ErrCorruptData, err)
	}
	if trimmed := bytes.TrimSpace(shape.Elements); len(trimmed) == 0 || trimmed[0] != '[' {
		return core.DrawingContent{}, fmt.Errorf("%w: elements is not an array", core.ErrCorruptData)
	}

	var content core.DrawingContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return core.DrawingContent{}, fmt.Errorf("%w: %v", core.ErrCorruptData, err)
	}
	return content.WithDefaults(), nil
}
