package state

import (
	"encoding/json"
	"excalidraw-drawings/core"
	"excalidraw-drawings/event"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// demoDrawings is the collection used on first run.
var demoDrawings = []core.DrawingRecord{
	{ID: 1, Name: "System Architecture Diagram", CreatedAt: demoTime("2024-11-15T10:30:00Z"), UpdatedAt: demoTime("2024-11-20T14:45:00Z")},
	{ID: 2, Name: "Wireframe - Login Page", CreatedAt: demoTime("2024-11-18T09:15:00Z"), UpdatedAt: demoTime("2024-11-18T16:20:00Z")},
	{ID: 3, Name: "Database Schema", CreatedAt: demoTime("2024-11-22T11:00:00Z"), UpdatedAt: demoTime("2024-11-25T10:30:00Z")},
	{ID: 4, Name: "User Flow Chart", CreatedAt: demoTime("2024-11-23T13:45:00Z"), UpdatedAt: demoTime("2024-11-28T09:00:00Z")},
	{ID: 5, Name: "API Design Mockup", CreatedAt: demoTime("2024-11-25T08:30:00Z"), UpdatedAt: demoTime("2024-11-29T15:10:00Z")},
	{ID: 6, Name: "Component Hierarchy", CreatedAt: demoTime("2024-11-27T14:20:00Z"), UpdatedAt: demoTime("2024-12-01T11:30:00Z")},
	{ID: 7, Name: "Network Topology", CreatedAt: demoTime("2024-11-28T10:00:00Z"), UpdatedAt: demoTime("2024-12-02T13:45:00Z")},
	{ID: 8, Name: "Class Diagram - Payment Module", CreatedAt: demoTime("2024-11-30T16:30:00Z"), UpdatedAt: demoTime("2024-12-03T10:15:00Z")},
}

func demoTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DemoDrawings returns a copy of the first-run collection.
func DemoDrawings() []core.DrawingRecord {
	return slices.Clone(demoDrawings)
}

type MetadataOption func(*MetadataStore)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) MetadataOption {
	return func(s *MetadataStore) { s.now = now }
}

// MetadataStore keeps the ordered collection of drawing records. The whole
// collection is rewritten to storage on every mutation.
type MetadataStore struct {
	mu          sync.Mutex
	storage     core.Storage
	bus         *event.Bus
	now         func() time.Time
	records     *Value[[]core.DrawingRecord]
	unsubscribe func()
}

// NewMetadataStore loads the collection from storage, falling back to the demo
// collection, and refreshes a record whenever its content is saved.
func NewMetadataStore(storage core.Storage, bus *event.Bus, opts ...MetadataOption) *MetadataStore {
	s := &MetadataStore{
		storage: storage,
		bus:     bus,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.records = NewValue(s.load())

	s.unsubscribe = bus.Subscribe(event.ContentSaved, func(e event.Event) {
		id, ok := e.Data.(int64)
		if !ok {
			return
		}
		if err := s.Touch(id); err != nil {
			logrus.WithField("drawing_id", id).WithError(err).Debug("Saved drawing not touched")
		}
	})
	return s
}

func (s *MetadataStore) load() []core.DrawingRecord {
	raw, ok, err := s.storage.GetItem(core.MetadataKey)
	if err != nil {
		logrus.WithError(err).Error("Failed to read drawing list")
		return DemoDrawings()
	}
	if !ok {
		return DemoDrawings()
	}

	var records []core.DrawingRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil || records == nil {
		logrus.WithError(err).Warn("Discarding unreadable drawing list")
		return DemoDrawings()
	}
	return records
}

// mutate applies fn to a copy of the collection, publishes the result and
// writes it to storage. fn returning an error leaves everything unchanged.
func (s *MetadataStore) mutate(fn func([]core.DrawingRecord) ([]core.DrawingRecord, error)) error {
	s.mu.Lock()
	next, err := fn(slices.Clone(s.records.Get()))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.records.Set(next)
	err = s.persist(next)
	s.mu.Unlock()
	return err
}

func (s *MetadataStore) persist(records []core.DrawingRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		logrus.WithError(err).Error("Failed to serialize drawing list")
		return fmt.Errorf("%w: serialize drawing list: %v", core.ErrStorage, err)
	}
	if err := s.storage.SetItem(core.MetadataKey, string(data)); err != nil {
		logrus.WithError(err).Error("Failed to save drawing list")
		return fmt.Errorf("%w: save drawing list: %v", core.ErrStorage, err)
	}
	return nil
}

// Add appends record to the collection.
func (s *MetadataStore) Add(record core.DrawingRecord) error {
	return s.mutate(func(records []core.DrawingRecord) ([]core.DrawingRecord, error) {
		return append(records, record), nil
	})
}

// Create adds a new drawing named name with the next free id.
func (s *MetadataStore) Create(name string) (core.DrawingRecord, error) {
	name, ok := core.NormalizeName(name)
	if !ok {
		return core.DrawingRecord{}, fmt.Errorf("%w: drawing name is empty", core.ErrValidation)
	}

	var created core.DrawingRecord
	err := s.mutate(func(records []core.DrawingRecord) ([]core.DrawingRecord, error) {
		var maxID int64
		for _, r := range records {
			maxID = max(maxID, r.ID)
		}
		now := s.now()
		created = core.DrawingRecord{ID: maxID + 1, Name: name, CreatedAt: now, UpdatedAt: now}
		return append(records, created), nil
	})
	if err == nil {
		logrus.WithFields(logrus.Fields{"drawing_id": created.ID, "name": created.Name}).Info("Drawing created")
	}
	return created, err
}

// Rename trims and truncates name and applies it to drawing id. An empty name
// is rejected with core.ErrValidation and nothing changes.
func (s *MetadataStore) Rename(id int64, name string) error {
	name, ok := core.NormalizeName(name)
	if !ok {
		return fmt.Errorf("%w: drawing name is empty", core.ErrValidation)
	}
	return s.mutate(func(records []core.DrawingRecord) ([]core.DrawingRecord, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: drawing %d", core.ErrNotFound, id)
		}
		records[i].Name = name
		records[i].UpdatedAt = s.now()
		return records, nil
	})
}

// Touch refreshes the UpdatedAt of drawing id.
func (s *MetadataStore) Touch(id int64) error {
	return s.mutate(func(records []core.DrawingRecord) ([]core.DrawingRecord, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: drawing %d", core.ErrNotFound, id)
		}
		records[i].UpdatedAt = s.now()
		return records, nil
	})
}

// Remove drops drawing id from the collection and announces
// event.DrawingRemoved so its content is deleted as well. When the list
// cannot be saved nothing is announced and the content is kept.
func (s *MetadataStore) Remove(id int64) error {
	err := s.mutate(func(records []core.DrawingRecord) ([]core.DrawingRecord, error) {
		return slices.DeleteFunc(records, func(r core.DrawingRecord) bool { return r.ID == id }), nil
	})
	if err != nil {
		return err
	}
	s.bus.Publish(event.Event{Type: event.DrawingRemoved, Data: id})
	logrus.WithField("drawing_id", id).Info("Drawing removed")
	return nil
}

// Reset restores the demo collection.
func (s *MetadataStore) Reset() error {
	return s.mutate(func([]core.DrawingRecord) ([]core.DrawingRecord, error) {
		return DemoDrawings(), nil
	})
}

// List returns a copy of the collection in order.
func (s *MetadataStore) List() []core.DrawingRecord {
	return slices.Clone(s.records.Get())
}

func (s *MetadataStore) GetByID(id int64) (core.DrawingRecord, bool) {
	records := s.records.Get()
	if i := indexOf(records, id); i >= 0 {
		return records[i], true
	}
	return core.DrawingRecord{}, false
}

// Subscribe calls fn with the collection now and after every mutation. fn must
// not mutate the store.
func (s *MetadataStore) Subscribe(fn func([]core.DrawingRecord)) func() {
	return s.records.Subscribe(func(records []core.DrawingRecord) {
		fn(slices.Clone(records))
	})
}

// Close unsubscribes the store from the bus.
func (s *MetadataStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func indexOf(records []core.DrawingRecord, id int64) int {
	return slices.IndexFunc(records, func(r core.DrawingRecord) bool { return r.ID == id })
}
