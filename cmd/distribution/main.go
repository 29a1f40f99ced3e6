// cmd/distribution/main.go
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"perknexus/internal/clients"
	"perknexus/internal/config"
	"perknexus/internal/distribution"
	"perknexus/internal/telemetry"
	"perknexus/pkg/eventstore"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "distribution").Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), "8082")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, "distribution")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer shutdown(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	es := eventstore.NewEventStore(db)
	catalogClient := clients.NewCatalogClient(cfg.CatalogServiceURL)
	enrollmentClient := clients.NewEnrollmentClient(cfg.EnrollmentServiceURL)
	svc := distribution.NewService(es, db, catalogClient, enrollmentClient, nil, logger)
	handler := distribution.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	handler.Routes(r)

	logger.Info().Str("port", cfg.Port).Msg("distribution service listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
