// cmd/enrollment/main.go
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

	"perknexus/internal/config"
	"perknexus/internal/enrollment"
	"perknexus/internal/telemetry"
	"perknexus/pkg/eventstore"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "enrollment").Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), "8083")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, "enrollment")
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
	svc := enrollment.NewService(es, db, logger)
	handler := enrollment.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	handler.Routes(r)

	logger.Info().Str("port", cfg.Port).Msg("enrollment service listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
