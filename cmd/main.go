package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"pubmed-chat/handler"
	"pubmed-chat/internal/app"
	"pubmed-chat/internal/config"
	"pubmed-chat/internal/logger"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.StateTable == "" {
		slog.Error("required environment variable is not set", "key", "STATE_TABLE")
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	// ---- Clients and use case ----
	deps, err := app.BuildWith(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(deps.Ask, log)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
