package main

import (
	"context"
	"errors"
	"excalidraw-drawings/cli"
	"excalidraw-drawings/config"
	"excalidraw-drawings/handlers/auth"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  drawctl [-loglevel level]            start the interactive shell
  drawctl token [-subject s] [-ttl d]  print a signed API token (needs JWT_SECRET)
  drawctl hash <access key>            print the bcrypt hash for AUTH_ACCESS_KEY_HASH
`)
}

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "token":
			os.Exit(runToken(cfg, os.Args[2:]))
		case "hash":
			os.Exit(runHash(os.Args[2:]))
		}
	}

	flag.Usage = usage
	logLevel := flag.String("loglevel", cfg.Log.Level, "Set the logging level: debug, info, warn, error")
	flag.Parse()

	cfg.Log.Level = *logLevel
	if err := cfg.Log.Apply(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start")
	}
	defer app.Close()

	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(home, ".drawctl_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize readline")
	}
	defer rl.Close()
	logrus.SetOutput(rl.Stderr())

	fmt.Fprintln(rl.Stdout(), "Excalidraw drawings shell. Use 'help' for the list of commands.")
	shell := cli.NewCLI(app, rl, rl.Stdout())

	for {
		err := shell.Run(context.Background())
		switch {
		case err == nil:
		case errors.Is(err, readline.ErrInterrupt):
			fmt.Fprintln(rl.Stdout(), "Use 'exit' to exit the program.")
		case errors.Is(err, io.EOF), errors.Is(err, cli.ErrExit):
			return
		default:
			fmt.Fprintln(rl.Stdout(), "Error:", err)
		}
	}
}

func runToken(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "drawctl", "Token subject")
	name := fs.String("name", "", "Display name")
	ttl := fs.Duration("ttl", 7*24*time.Hour, "Token lifetime")
	fs.Parse(args)

	token, err := auth.NewVerifier(cfg.Auth).CreateJWT(*subject, *name, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create token:", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func runHash(args []string) int {
	if len(args) != 1 {
		usage()
		return 2
	}
	hash, err := auth.HashAccessKey(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to hash access key:", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
