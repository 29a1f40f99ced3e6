// cmd/api/main.go
package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"perknexus/internal/config"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), "8080")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	catalogURL, err := url.Parse(cfg.CatalogServiceURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid catalog service URL")
	}
	distributionURL, err := url.Parse(cfg.DistributionService)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid distribution service URL")
	}
	enrollmentURL, err := url.Parse(cfg.EnrollmentServiceURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid enrollment service URL")
	}
	analyticsURL, err := url.Parse(cfg.AnalyticsServiceURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid analytics service URL")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	mount := func(prefix string, target *url.URL) {
		proxy := httputil.NewSingleHostReverseProxy(target)
		r.Handle(prefix+"/*", http.StripPrefix(prefix, proxy))
	}
	mount("/api/v1/catalog", catalogURL)
	mount("/api/v1/distribution", distributionURL)
	mount("/api/v1/enrollment", enrollmentURL)
	mount("/api/v1/analytics", analyticsURL)

	logger.Info().Str("port", cfg.Port).Msg("API gateway listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
