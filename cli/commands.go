package cli

import (
	"context"
	"encoding/json"
	"excalidraw-drawings/core"
	"excalidraw-drawings/state"
	"fmt"
	"os"
	"strconv"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid drawing id: %s", arg)
	}
	return id, nil
}

func (c *CLI) handleList(args []string) error {
	records := c.App.Metadata.List()
	if len(records) == 0 {
		c.printf("No drawings.\n")
		return nil
	}
	for _, r := range records {
		marker := " "
		if r.ID == c.open {
			marker = "*"
		}
		c.printf("%s %4d  %-40s  %s\n", marker, r.ID, r.Name, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (c *CLI) handleNew(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: new <name>")
	}
	record, err := c.App.Metadata.Create(args[0])
	if err != nil {
		return err
	}
	c.printf("Created drawing %d '%s'\n", record.ID, record.Name)
	return nil
}

func (c *CLI) handleRename(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: rename <id> <name>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.App.Metadata.Rename(id, args[1]); err != nil {
		return err
	}
	record, _ := c.App.Metadata.GetByID(id)
	c.printf("Drawing %d renamed to '%s'\n", id, record.Name)
	return nil
}

func (c *CLI) handleDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if _, ok := c.App.Metadata.GetByID(id); !ok {
		return fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
	}
	if err := c.App.Metadata.Remove(id); err != nil {
		return err
	}
	if c.open == id {
		c.open = 0
		c.App.Content.Clear()
	}
	c.printf("Drawing %d deleted\n", id)
	return nil
}

func (c *CLI) handleOpen(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	record, ok := c.App.Metadata.GetByID(id)
	if !ok {
		return fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
	}
	content := c.App.Content.Load(id)
	c.open = id
	c.printf("Opened '%s': %d elements, %d files\n", record.Name, len(content.Elements), len(content.Files))
	return nil
}

// handleSave stores the content read from a JSON file.
func (c *CLI) handleSave(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: save <id> <file>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}

	var content core.DrawingContent
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("%s is not a drawing: %w", args[1], err)
	}

	if err := c.App.Content.Save(id, content); err != nil {
		return err
	}
	c.open = id
	c.printf("Saved %d elements to drawing %d\n", len(content.Elements), id)
	return nil
}

// handleExport prints the content of a drawing, or writes it to a file.
func (c *CLI) handleExport(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: export <id> [file]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.App.Content.Load(id), "", "  ")
	if err != nil {
		return err
	}
	if len(args) == 1 {
		c.printf("%s\n", data)
		return nil
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[1], err)
	}
	c.printf("Exported drawing %d to %s\n", id, args[1])
	return nil
}

func (c *CLI) handleReset(args []string) error {
	if err := c.App.Metadata.Reset(); err != nil {
		return err
	}
	c.printf("Drawing list restored\n")
	return nil
}

func (c *CLI) handleZoom(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zoom <percent>")
	}
	zoom, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid zoom: %s", args[0])
	}
	c.App.UI.SetZoom(zoom)
	c.printf("Zoom: %d%%\n", c.App.UI.Get().Zoom)
	return nil
}

func (c *CLI) handleTool(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tool <name>")
	}
	c.App.UI.SetTool(args[0])
	c.printf("Tool: %s\n", args[0])
	return nil
}

func (c *CLI) handleTheme(args []string) error {
	switch len(args) {
	case 0:
		c.App.UI.ToggleTheme()
	case 1:
		theme := state.Theme(args[0])
		if theme != state.ThemeLight && theme != state.ThemeDark {
			return fmt.Errorf("unknown theme: %s", args[0])
		}
		c.App.UI.SetTheme(theme)
	default:
		return fmt.Errorf("usage: theme [light|dark]")
	}
	c.printf("Theme: %s\n", c.App.UI.Get().Theme)
	return nil
}

func (c *CLI) handleToggle(name string) error {
	ui := c.App.UI
	var on bool
	switch name {
	case "sidebar":
		ui.ToggleSidebar()
		on = ui.Get().SidebarOpen
	case "view":
		ui.ToggleViewMode()
		on = ui.Get().ViewMode
	case "zen":
		ui.ToggleZenMode()
		on = ui.Get().ZenMode
	case "grid":
		ui.ToggleGridMode()
		on = ui.Get().GridMode
	}
	c.printf("%s: %s\n", name, onOff(on))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (c *CLI) handleUI(args []string) error {
	if len(args) == 1 && args[0] == "reset" {
		c.App.UI.Reset()
	} else if len(args) != 0 {
		return fmt.Errorf("usage: ui [reset]")
	}
	s := c.App.UI.Get()
	c.printf("tool: %s\nzoom: %d%%\ntheme: %s\nsidebar: %s\nview mode: %s\nzen mode: %s\ngrid: %s\n",
		s.ActiveTool, s.Zoom, s.Theme, onOff(s.SidebarOpen), onOff(s.ViewMode), onOff(s.ZenMode), onOff(s.GridMode))
	return nil
}

func (c *CLI) handleLogin(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: login <access key>")
	}
	if err := c.App.Auth.Set(args[0]); err != nil {
		return err
	}
	c.printf("Access key stored\n")
	return nil
}

func (c *CLI) handleLogout(args []string) error {
	if err := c.App.Auth.Clear(); err != nil {
		return err
	}
	c.printf("Access key removed\n")
	return nil
}

// handleWhoami reports the local sign-in state and asks the server whether
// the key is still accepted.
func (c *CLI) handleWhoami(ctx context.Context) error {
	if !c.App.Auth.IsAuthenticated() {
		c.printf("Not signed in\n")
		return nil
	}
	ok, err := c.App.Remote.ValidateAuth(ctx)
	if err != nil {
		c.printf("Signed in (server unreachable: %v)\n", err)
		return nil
	}
	if ok {
		c.printf("Signed in, access key accepted by the server\n")
	}
	return nil
}
