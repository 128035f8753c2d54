package filesystem

import (
	"excalidraw-drawings/core"
	"excalidraw-drawings/stores/hub"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// fsStore keeps one file per key under basePath.
type fsStore struct {
	basePath string
	hub      *hub.Hub
	tab      string
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &fsStore{basePath: basePath, hub: hub.New(), tab: hub.NewTab()}, nil
}

func (s *fsStore) Tab() core.Storage {
	return &fsStore{basePath: s.basePath, hub: s.hub, tab: hub.NewTab()}
}

func (s *fsStore) keyPath(key string) (string, error) {
	// Keys are plain names, never paths.
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid key %q: %w", key, core.ErrValidation)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *fsStore) GetItem(key string) (string, bool, error) {
	filePath, err := s.keyPath(key)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		logrus.WithFields(logrus.Fields{"key": key, "path": filePath}).WithError(err).Error("Failed to read item")
		return "", false, err
	}
	return string(data), true, nil
}

func (s *fsStore) SetItem(key, value string) error {
	filePath, err := s.keyPath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "path": filePath})

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		log.WithError(err).Error("Failed to write item")
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		log.WithError(err).Error("Failed to replace item")
		return err
	}

	log.Debug("Item stored")
	s.hub.Notify(s.tab, core.StorageEvent{Key: key, NewValue: value})
	return nil
}

func (s *fsStore) RemoveItem(key string) error {
	filePath, err := s.keyPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logrus.WithFields(logrus.Fields{"key": key, "path": filePath}).WithError(err).Error("Failed to remove item")
		return err
	}

	s.hub.Notify(s.tab, core.StorageEvent{Key: key, Removed: true})
	return nil
}

func (s *fsStore) AddChangeListener(key string, fn core.ChangeListener) func() {
	return s.hub.Listen(s.tab, key, fn)
}
