package core

const (
	// AuthKey holds the bearer credential.
	AuthKey = "excalidraw_access_key"
	// MetadataKey holds the JSON array of drawing records.
	MetadataKey = "excalidraw-drawings"
	// ContentKeyPrefix prefixes the per-drawing content keys.
	ContentKeyPrefix = "excalidraw-drawing-"
	// UIKeyPrefix prefixes persisted UI fields, e.g. "excalidraw-theme".
	UIKeyPrefix = "excalidraw-"
)

type (
	// StorageEvent describes a change of one key made through another handle.
	StorageEvent struct {
		Key      string
		NewValue string
		// Removed is set when the key was deleted; NewValue is empty then.
		Removed bool
	}

	ChangeListener func(StorageEvent)

	// Storage is durable client-side key-value storage. Calls are synchronous.
	Storage interface {
		// GetItem returns the value of key; ok is false when the key is absent.
		GetItem(key string) (value string, ok bool, err error)
		SetItem(key, value string) error
		// RemoveItem deletes key. Removing an absent key is not an error.
		RemoveItem(key string) error
		// AddChangeListener registers fn for changes of key made through other
		// handles of the same storage. The returned func removes the listener.
		AddChangeListener(key string, fn ChangeListener) (remove func())
		// Tab returns another handle on the same data, as a second browser tab
		// would see it.
		Tab() Storage
	}
)
