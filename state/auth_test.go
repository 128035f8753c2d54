package state

import (
	"errors"
	"excalidraw-drawings/core"
	"excalidraw-drawings/stores/memory"
	"testing"

	"github.com/stretchr/testify/require"
)

// failingStorage wraps a storage and fails writes on demand.
type failingStorage struct {
	core.Storage
	failSet    bool
	failRemove bool
}

func (f *failingStorage) SetItem(key, value string) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.Storage.SetItem(key, value)
}

func (f *failingStorage) RemoveItem(key string) error {
	if f.failRemove {
		return errors.New("storage unavailable")
	}
	return f.Storage.RemoveItem(key)
}

func TestAuth_InitialFromStorage(t *testing.T) {
	storage := memory.NewStore()
	require.NoError(t, storage.SetItem(core.AuthKey, "stored-key"))

	auth := NewAuth(storage)
	defer auth.Close()

	key, ok := auth.Get()
	require.True(t, ok)
	require.Equal(t, "stored-key", key)
	require.True(t, auth.IsAuthenticated())
}

func TestAuth_SetAndClear(t *testing.T) {
	storage := memory.NewStore()
	auth := NewAuth(storage)
	defer auth.Close()

	require.False(t, auth.IsAuthenticated())

	require.NoError(t, auth.Set("  secret  "))
	key, ok := auth.Get()
	require.True(t, ok)
	require.Equal(t, "secret", key)

	stored, present, err := storage.GetItem(core.AuthKey)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "secret", stored)

	require.NoError(t, auth.Clear())
	_, ok = auth.Get()
	require.False(t, ok)
	_, present, _ = storage.GetItem(core.AuthKey)
	require.False(t, present)
}

func TestAuth_SetEmptyRejected(t *testing.T) {
	auth := NewAuth(memory.NewStore())
	defer auth.Close()

	err := auth.Set("   ")
	require.ErrorIs(t, err, core.ErrValidation)
	require.False(t, auth.IsAuthenticated())
}

func TestAuth_SubscribeSeesTransitions(t *testing.T) {
	auth := NewAuth(memory.NewStore())
	defer auth.Close()

	var states []bool
	unsubscribe := auth.Subscribe(func(s AuthState) { states = append(states, s.IsAuthenticated) })
	defer unsubscribe()

	require.NoError(t, auth.Set("k"))
	require.NoError(t, auth.Clear())

	require.Equal(t, []bool{false, true, false}, states)
}

func TestAuth_CrossTabSync(t *testing.T) {
	storage := memory.NewStore()
	tabA := NewAuth(storage)
	defer tabA.Close()
	tabB := NewAuth(storage.Tab())
	defer tabB.Close()

	require.NoError(t, tabA.Set("shared"))
	key, ok := tabB.Get()
	require.True(t, ok)
	require.Equal(t, "shared", key)

	require.NoError(t, tabA.Clear())
	require.False(t, tabB.IsAuthenticated())
}

func TestAuth_CloseStopsSync(t *testing.T) {
	storage := memory.NewStore()
	tabA := NewAuth(storage)
	tabB := NewAuth(storage.Tab())
	tabB.Close()

	require.NoError(t, tabA.Set("shared"))
	require.False(t, tabB.IsAuthenticated())
}

func TestAuth_StorageFailures(t *testing.T) {
	storage := &failingStorage{Storage: memory.NewStore()}
	auth := NewAuth(storage)
	defer auth.Close()

	storage.failSet = true
	err := auth.Set("k")
	require.ErrorIs(t, err, core.ErrStorage)
	require.False(t, auth.IsAuthenticated())

	storage.failSet = false
	require.NoError(t, auth.Set("k"))

	storage.failRemove = true
	err = auth.Clear()
	require.ErrorIs(t, err, core.ErrStorage)
	require.False(t, auth.IsAuthenticated())
}
