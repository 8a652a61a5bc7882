// Command lambda serves the upload API behind an API Gateway HTTP API.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kie/assets/internal/config"
	"github.com/kie/assets/internal/lambdaproxy"
	"github.com/kie/assets/internal/logger"
	"github.com/kie/assets/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "json"})

	ctx := context.Background()

	store, err := server.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("object storage init failed", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	// The pool lives as long as the execution environment.
	journal, _, err := server.OpenJournal(ctx, cfg)
	if err != nil {
		log.Error("upload journal init failed", "error", err)
		os.Exit(1)
	}

	handler, err := server.NewRouter(server.Deps{
		Config:  cfg,
		Log:     log,
		Store:   store,
		Journal: journal,
	})
	if err != nil {
		log.Error("router init failed", "error", err)
		os.Exit(1)
	}

	lambda.Start(lambdaproxy.New(handler))
}
