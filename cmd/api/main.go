//	@title			Asset Upload API
//	@version		1.0
//	@description	Uploads images (multipart or base64 JSON) to object storage and returns a public URL.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						x-api-key
//	@description				Static shared secret.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kie/assets/internal/config"
	"github.com/kie/assets/internal/logger"
	"github.com/kie/assets/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	store, err := server.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("object storage init failed", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	journal, closeJournal, err := server.OpenJournal(ctx, cfg)
	if err != nil {
		log.Error("upload journal init failed", "error", err)
		os.Exit(1)
	}
	defer closeJournal()

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

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.StorageTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server listening",
			"port", cfg.Port,
			"env", cfg.AppEnv,
			"storage", cfg.StorageDriver,
			"journal", cfg.JournalEnabled(),
		)
		log.Info("swagger UI at http://localhost:" + cfg.Port + "/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		return
	}

	log.Info("server stopped")
}
