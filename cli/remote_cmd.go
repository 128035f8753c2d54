package cli

import (
	"context"
	"encoding/json"
	"excalidraw-drawings/client"
	"excalidraw-drawings/core"
	"fmt"
	"os"
	"strconv"
)

func (c *CLI) handleRemote(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: remote list|get|create|update|delete|health")
	}

	switch args[0] {
	case "list":
		return c.remoteList(ctx, args[1:])
	case "get":
		return c.remoteGet(ctx, args[1:])
	case "create":
		return c.remoteCreate(ctx, args[1:])
	case "update":
		return c.remoteUpdate(ctx, args[1:])
	case "delete":
		return c.remoteDelete(ctx, args[1:])
	case "health":
		status, err := c.App.Remote.Health(ctx)
		if err != nil {
			return err
		}
		c.printf("Server status: %s\n", status)
		return nil
	default:
		return fmt.Errorf("unknown remote operation: %s", args[0])
	}
}

func (c *CLI) remoteList(ctx context.Context, args []string) error {
	var opts client.ListOptions
	var err error
	if len(args) > 0 {
		if opts.Limit, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid limit: %s", args[0])
		}
	}
	if len(args) > 1 {
		if opts.Offset, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid offset: %s", args[1])
		}
	}

	list, err := c.App.Remote.List(ctx, opts)
	if err != nil {
		return err
	}
	for _, d := range list.Drawings {
		c.printf("  %-26s  %-40s  %s\n", d.ID, d.Name, d.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	c.printf("Showing %d of %d (limit %d, offset %d)\n", len(list.Drawings), list.Total, list.Limit, list.Offset)
	return nil
}

func (c *CLI) remoteGet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remote get <id>")
	}
	d, err := c.App.Remote.Get(ctx, args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	c.printf("%s\n", data)
	return nil
}

func readDataFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%s does not hold a JSON object: %w", path, err)
	}
	return data, nil
}

func (c *CLI) remoteCreate(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: remote create <name> [file]")
	}
	data := map[string]any{}
	if len(args) == 2 {
		var err error
		if data, err = readDataFile(args[1]); err != nil {
			return err
		}
	}

	d, err := c.App.Remote.Create(ctx, args[0], data)
	if err != nil {
		return err
	}
	c.printf("Created remote drawing %s '%s'\n", d.ID, d.Name)
	return nil
}

// remoteUpdate accepts --name <name> and --file <file> in any order.
func (c *CLI) remoteUpdate(ctx context.Context, args []string) error {
	usage := fmt.Errorf("usage: remote update <id> [--name <name>] [--file <file>]")
	if len(args) < 3 {
		return usage
	}

	id := args[0]
	var update core.UpdateDrawingRequest
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return usage
		}
		switch args[i] {
		case "--name", "-n":
			name := args[i+1]
			update.Name = &name
		case "--file", "-f":
			data, err := readDataFile(args[i+1])
			if err != nil {
				return err
			}
			update.Data = data
		default:
			return usage
		}
	}

	d, err := c.App.Remote.Update(ctx, id, update)
	if err != nil {
		return err
	}
	c.printf("Updated remote drawing %s '%s'\n", d.ID, d.Name)
	return nil
}

func (c *CLI) remoteDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remote delete <id>")
	}
	if err := c.App.Remote.Delete(ctx, args[0]); err != nil {
		return err
	}
	c.printf("Deleted remote drawing %s\n", args[0])
	return nil
}
