// Package server assembles the HTTP router shared by the standalone and
// Lambda entrypoints.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/kie/assets/internal/config"
	"github.com/kie/assets/internal/journal"
	"github.com/kie/assets/internal/metrics"
	appMiddleware "github.com/kie/assets/internal/middleware"
	"github.com/kie/assets/internal/response"
	"github.com/kie/assets/internal/storage"
	"github.com/kie/assets/internal/upload"

	_ "github.com/kie/assets/docs/swagger"
)

// Journal records stored uploads and lists them back.
type Journal interface {
	upload.Recorder
	journal.Lister
}

// Deps are the collaborators the router wires together.
type Deps struct {
	Config *config.Config
	Log    *slog.Logger
	Store  storage.Storage

	// Journal is optional; nil leaves /uploads unmounted and uploads unrecorded.
	Journal Journal

	// Registry receives upload metrics and backs /metrics. Nil uses the
	// Prometheus defaults.
	Registry *prometheus.Registry
}

// NewRouter builds the complete HTTP handler.
func NewRouter(d Deps) (http.Handler, error) {
	cfg := d.Config

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	observer, err := metrics.NewUploadObserver("assets", registerer)
	if err != nil {
		return nil, err
	}

	opts := upload.Options{
		MaxBytes: cfg.MaxUploadBytes,
		Timeout:  cfg.StorageTimeout,
		Observer: observer,
	}
	if d.Journal != nil {
		opts.Recorder = d.Journal
	}
	uploadHandler := upload.NewHandler(upload.NewService(d.Store, d.Log, opts), d.Log)

	if cfg.APIKey == "" {
		d.Log.Warn("API_KEY is empty; every gated request will be rejected")
	}
	gate := appMiddleware.RequireAPIKey(cfg.APIKeyHeader, cfg.APIKey)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(d.Log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", cfg.APIKeyHeader},
		MaxAge:         300,
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	routes := func(r chi.Router) {
		r.Use(gate)
		r.Post("/upload", uploadHandler.Upload)
		r.Get("/file", uploadHandler.GetFile)
		if d.Journal != nil {
			r.Get("/uploads", journal.NewHandler(d.Journal, d.Log).List)
		}
	}
	r.Group(routes)
	// Paths used by existing n8n workflows.
	r.Route("/api/n8n", routes)

	if fs, ok := d.Store.(*storage.FilesystemStorage); ok {
		mountFiles(r, cfg.StoragePublicBase, fs)
	}

	return r, nil
}

// mountFiles serves filesystem-stored objects under the path of publicBase
// so the URLs the store issues resolve against this server.
func mountFiles(r chi.Router, publicBase string, fs *storage.FilesystemStorage) {
	u, err := url.Parse(publicBase)
	if err != nil {
		return
	}
	prefix := strings.TrimRight(u.Path, "/")
	if prefix == "" {
		return
	}
	r.Handle(prefix+"/*", http.StripPrefix(prefix, fs.FileServer()))
}
