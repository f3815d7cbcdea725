// Kioku is an interactive shell around the conversation memory engine.
//
// Plain input lines are recorded as user turns and echoed back as the
// enriched prompt that would be handed to a language model; lines starting
// with "assistant:" record the model side of the exchange. Slash commands
// inspect and manage the session. No network or model dependency is
// involved.
//
// Configuration comes from an optional YAML file (-config) and from
// KIOKU_-prefixed environment variables; a .env file in the working
// directory is loaded first when present. See internal/kioku/config for
// the full list of knobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/bdobrica/Kioku/common/version"
	"github.com/bdobrica/Kioku/internal/kioku/app"
	"github.com/bdobrica/Kioku/internal/kioku/config"
	"github.com/bdobrica/Kioku/internal/kioku/observability"
)

func main() {
	fmt.Printf("Kioku Conversation Memory\n")
	fmt.Printf("Build: %s\n", version.Info())
	fmt.Println()

	// Load .env when present so local runs pick up KIOKU_ overrides.
	if err := godotenv.Load(); err == nil {
		fmt.Println("environment loaded from .env")
	}

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)

	kioku, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize Kioku", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := kioku.Start(ctx); err != nil {
		slog.Error("failed to start Kioku", "err", err)
		os.Exit(1)
	}
	defer kioku.Stop()

	newREPL(kioku, os.Stdin, os.Stdout).run(ctx)
}
