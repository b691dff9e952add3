// chatbot - a streaming terminal chat client.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Jhonatan1998P/chatbot/internal/api"
	"github.com/Jhonatan1998P/chatbot/internal/cli"
	"github.com/Jhonatan1998P/chatbot/internal/config"
	"github.com/Jhonatan1998P/chatbot/internal/render"
	"github.com/Jhonatan1998P/chatbot/internal/storage"
	"github.com/Jhonatan1998P/chatbot/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "version", "--version", "-v":
		fmt.Printf("chatbot %s (%s, %s)\n", Version, GitCommit, BuildDate)

	case "help", "--help", "-h":
		printUsage()

	case "plain":
		if err := runPlain(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "":
		if !cli.IsInteractive() {
			// Piped stdin gets the line-mode interface rather than a
			// broken full-screen one.
			if err := runPlain(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if err := runTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: chatbot [command]

Commands:
  (none)     full-screen chat interface
  plain      line-mode chat interface
  version    print version information
  help       show this help`)
}

// bootstrap loads configuration and opens the conversation store and
// API client shared by both interfaces.
func bootstrap() (*storage.Store, *api.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	kv, err := openKV(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := storage.Open(kv)
	if err != nil {
		kv.Close()
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	client := api.New(cfg.APIKey).
		WithBaseURL(cfg.BaseURL).
		WithModel(cfg.Model)

	// Pick up config edits live so adding an API key does not require a
	// restart mid-conversation. The watcher runs for the process lifetime.
	if path, err := config.Path(); err == nil {
		if _, err := config.Watch(path, func(next *config.Config) {
			client.Reconfigure(next.APIKey, next.BaseURL, next.Model)
		}); err != nil {
			log.Printf("config: live reload unavailable: %v", err)
		}
	}

	return store, client, cfg, nil
}

func openKV(cfg *config.Config) (storage.KV, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	switch cfg.Storage {
	case config.StorageSQLite:
		return storage.NewSQLiteKV(filepath.Join(cfg.DataDir, "chatbot.db"))
	default:
		return storage.NewFileKV(cfg.DataDir), nil
	}
}

func runTUI() error {
	store, client, cfg, err := bootstrap()
	if err != nil {
		return err
	}

	// Stray log lines would tear the alternate screen; divert them.
	if f, err := os.OpenFile(filepath.Join(cfg.DataDir, "chatbot.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	md := render.NewMarkdown(cfg.WrapWidth)
	return ui.Run(store, client, md)
}

func runPlain() error {
	store, client, cfg, err := bootstrap()
	if err != nil {
		return err
	}

	md := render.NewMarkdown(cfg.WrapWidth)
	repl := cli.NewREPL(store, client, md)
	defer repl.Close()
	return repl.Run(context.Background())
}
