package state

import (
	"excalidraw-drawings/core"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

type AuthState struct {
	AccessKey       string
	IsAuthenticated bool
}

// Auth holds the bearer credential. It is persisted under core.AuthKey and
// kept in sync with changes made by other tabs.
type Auth struct {
	storage        core.Storage
	state          *Value[AuthState]
	removeListener func()
}

func NewAuth(storage core.Storage) *Auth {
	a := &Auth{
		storage: storage,
		state:   NewValue(loadAuthState(storage)),
	}
	a.removeListener = storage.AddChangeListener(core.AuthKey, a.onStorageChange)
	return a
}

func loadAuthState(storage core.Storage) AuthState {
	key, ok, err := storage.GetItem(core.AuthKey)
	if err != nil {
		logrus.WithError(err).Error("Failed to read stored access key")
		return AuthState{}
	}
	if !ok || key == "" {
		return AuthState{}
	}
	return AuthState{AccessKey: key, IsAuthenticated: true}
}

func (a *Auth) onStorageChange(ev core.StorageEvent) {
	if ev.Removed || ev.NewValue == "" {
		logrus.Debug("Access key cleared by another tab")
		a.state.Set(AuthState{})
		return
	}
	logrus.Debug("Access key changed by another tab")
	a.state.Set(AuthState{AccessKey: ev.NewValue, IsAuthenticated: true})
}

// Get returns the credential; ok is false when none is set.
func (a *Auth) Get() (string, bool) {
	s := a.state.Get()
	return s.AccessKey, s.IsAuthenticated
}

func (a *Auth) IsAuthenticated() bool {
	return a.state.Get().IsAuthenticated
}

// Set stores the credential. The in-memory state only changes when the write
// succeeded.
func (a *Auth) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("access key is empty: %w", core.ErrValidation)
	}
	if err := a.storage.SetItem(core.AuthKey, key); err != nil {
		logrus.WithError(err).Error("Failed to store access key")
		return fmt.Errorf("%w: %v", core.ErrStorage, err)
	}
	a.state.Set(AuthState{AccessKey: key, IsAuthenticated: true})
	return nil
}

// Clear forgets the credential. The in-memory state is cleared even when the
// stored copy could not be removed.
func (a *Auth) Clear() error {
	a.state.Set(AuthState{})
	if err := a.storage.RemoveItem(core.AuthKey); err != nil {
		logrus.WithError(err).Error("Failed to remove stored access key")
		return fmt.Errorf("%w: %v", core.ErrStorage, err)
	}
	return nil
}

func (a *Auth) Subscribe(fn func(AuthState)) func() {
	return a.state.Subscribe(fn)
}

// Close stops following changes from other tabs.
func (a *Auth) Close() {
	if a.removeListener != nil {
		a.removeListener()
	}
}
