package cli

import "sort"

func (c *CLI) printHelp(command string) {
	if command == "" {
		c.printf("Available commands:\n")
		names := make([]string, 0, len(commandHelp))
		for name := range commandHelp {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c.printf("  %s\n", name)
		}
		c.printf("\nUse 'help <command>' for more information about a specific command.\n")
	} else if help, ok := commandHelp[command]; ok {
		c.printf("%s\n", help)
	} else {
		c.printf("Unknown command: %s\n", command)
	}
}

var commandHelp = map[string]string{
	"list": `Syntax: list
Description: Lists the local drawings. The open drawing is marked with '*'.`,

	"new": `Syntax: new <name>
Description: Creates a local drawing. Names are trimmed and cut to 100 characters.
Example: new "Network Topology"`,

	"rename": `Syntax: rename <id> <name>
Description: Renames a local drawing. An empty name is rejected.
Example: rename 3 "Database Schema v2"`,

	"delete": `Syntax: delete <id>
Description: Deletes a local drawing and its content.`,

	"open": `Syntax: open <id>
Description: Loads the content of a local drawing. Unreadable content is discarded.`,

	"save": `Syntax: save <id> <file>
Description: Stores the drawing content read from a JSON file holding elements, appState and files.
Example: save 3 board.excalidraw`,

	"export": `Syntax: export <id> [file]
Description: Prints the content of a drawing, or writes it to file.`,

	"reset": `Syntax: reset
Description: Restores the demo drawing list.`,

	"zoom": `Syntax: zoom <percent>
Description: Sets the zoom, clamped to 10..500.`,

	"tool": `Syntax: tool <name>
Description: Selects the active tool.
Example: tool rectangle`,

	"theme": `Syntax: theme [light|dark]
Description: Sets the theme, or toggles it without an argument.`,

	"sidebar": `Syntax: sidebar
Description: Opens or closes the sidebar.`,

	"view": `Syntax: view
Description: Toggles view mode.`,

	"zen": `Syntax: zen
Description: Toggles zen mode.`,

	"grid": `Syntax: grid
Description: Toggles the grid.`,

	"ui": `Syntax: ui [reset]
Description: Shows the view state, or restores the defaults.`,

	"login": `Syntax: login <access key>
Description: Stores the access key used for the remote API.`,

	"logout": `Syntax: logout
Description: Removes the stored access key.`,

	"whoami": `Syntax: whoami
Description: Shows whether an access key is stored and accepted by the server.`,

	"remote": `Syntax: remote list [limit] [offset]
        remote get <id>
        remote create <name> [file]
        remote update <id> [--name <name>] [--file <file>]
        remote delete <id>
        remote health
Description: Works with drawings stored on the server.
Example: remote list 5 0`,

	"exit": `Syntax: exit
Description: Exits the program.`,
}
