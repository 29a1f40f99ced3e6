// cmd/analytics/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"perknexus/internal/analytics"
	"perknexus/internal/config"
	"perknexus/internal/identity"
	"perknexus/internal/telemetry"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "analytics").Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), "8084")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, "analytics")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer shutdown(ctx)

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	resolver := identity.NewResolver(db.DB, logger)
	svc := analytics.NewService(db, resolver, cfg.MonthlySavingsGoal, logger)
	handler := analytics.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	handler.Routes(r)

	logger.Info().Str("port", cfg.Port).Msg("analytics service listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
