package cli

import (
	"excalidraw-drawings/client"
	"excalidraw-drawings/config"
	"excalidraw-drawings/core"
	"excalidraw-drawings/event"
	"excalidraw-drawings/state"
	"excalidraw-drawings/stores"
	"fmt"
)

// App wires the state holders of one running client.
type App struct {
	Bus      *event.Bus
	Auth     *state.Auth
	UI       *state.UI
	Content  *state.ContentStore
	Metadata *state.MetadataStore
	Remote   *client.Client
}

// NewApp opens the configured storage and builds the holders on top of it.
func NewApp(cfg *config.Config) (*App, error) {
	storage, err := stores.GetStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	fields, err := state.ParseFields(cfg.UI.PersistFields)
	if err != nil {
		return nil, err
	}
	return newApp(storage, cfg.API, fields...), nil
}

func newApp(storage core.Storage, api config.APIConfig, persist ...state.Field) *App {
	bus := event.NewBus()
	auth := state.NewAuth(storage)
	return &App{
		Bus:      bus,
		Auth:     auth,
		UI:       state.NewUI(storage, persist...),
		Content:  state.NewContentStore(storage, bus),
		Metadata: state.NewMetadataStore(storage, bus),
		Remote:   client.NewClient(api.BaseURL, auth, bus, client.WithTimeout(api.Timeout)),
	}
}

func (a *App) Close() {
	a.Content.Close()
	a.Metadata.Close()
	a.Auth.Close()
}
