// Package cli is the interactive front-end of the drawing stores.
package cli

import (
	"context"
	"errors"
	"excalidraw-drawings/event"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ErrExit is returned by ExecuteCommand when the user asked to leave.
var ErrExit = errors.New("exit requested")

type CLI struct {
	App    *App
	RL     *readline.Instance
	Prompt string
	out    io.Writer
	open   int64
}

// NewCLI creates the front-end. rl may be nil when commands are executed
// directly, out receives all output.
func NewCLI(app *App, rl *readline.Instance, out io.Writer) *CLI {
	c := &CLI{App: app, RL: rl, out: out}
	app.Bus.Subscribe(event.AuthRequired, func(event.Event) {
		c.printf("Authentication required. Use 'login <access key>'.\n")
	})
	c.UpdatePrompt()
	return c
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// UpdatePrompt shows the open drawing and the sign-in state.
func (c *CLI) UpdatePrompt() {
	var b strings.Builder
	if c.open != 0 {
		if record, ok := c.App.Metadata.GetByID(c.open); ok {
			b.WriteString(record.Name)
		} else {
			fmt.Fprintf(&b, "#%d", c.open)
		}
	}
	if !c.App.Auth.IsAuthenticated() {
		b.WriteString(" (offline)")
	}
	b.WriteString("> ")
	c.Prompt = strings.TrimLeft(b.String(), " ")
	if c.RL != nil {
		c.RL.SetPrompt(c.Prompt)
	}
}

// Run reads and executes one line.
func (c *CLI) Run(ctx context.Context) error {
	line, err := c.RL.Readline()
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	err = c.ExecuteCommand(ctx, ParseArgs(line))
	c.UpdatePrompt()
	return err
}

// ParseArgs splits input on spaces; double quotes group words.
func ParseArgs(input string) []string {
	var args []string
	var currentArg strings.Builder
	inQuotes := false
	quoted := false

	for _, char := range input {
		switch {
		case char == '"':
			inQuotes = !inQuotes
			quoted = true
		case (char == ' ' || char == '\t') && !inQuotes:
			if currentArg.Len() > 0 || quoted {
				args = append(args, currentArg.String())
				currentArg.Reset()
				quoted = false
			}
		default:
			currentArg.WriteRune(char)
		}
	}

	if currentArg.Len() > 0 || quoted {
		args = append(args, currentArg.String())
	}
	return args
}

func (c *CLI) ExecuteCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}

	switch args[0] {
	case "list", "ls":
		return c.handleList(args[1:])
	case "new":
		return c.handleNew(args[1:])
	case "rename":
		return c.handleRename(args[1:])
	case "delete", "del":
		return c.handleDelete(args[1:])
	case "open":
		return c.handleOpen(args[1:])
	case "save":
		return c.handleSave(args[1:])
	case "export":
		return c.handleExport(args[1:])
	case "reset":
		return c.handleReset(args[1:])
	case "zoom":
		return c.handleZoom(args[1:])
	case "tool":
		return c.handleTool(args[1:])
	case "theme":
		return c.handleTheme(args[1:])
	case "sidebar", "view", "zen", "grid":
		return c.handleToggle(args[0])
	case "ui":
		return c.handleUI(args[1:])
	case "login":
		return c.handleLogin(args[1:])
	case "logout":
		return c.handleLogout(args[1:])
	case "whoami":
		return c.handleWhoami(ctx)
	case "remote":
		return c.handleRemote(ctx, args[1:])
	case "help":
		c.printHelp(strings.Join(args[1:], " "))
		return nil
	case "exit", "quit":
		c.printf("Exiting...\n")
		return ErrExit
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
