package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kmcbride/sleeper-exposure/external/crosswalk"
	"github.com/kmcbride/sleeper-exposure/external/sleeper"
	"github.com/kmcbride/sleeper-exposure/internal/config"
	"github.com/kmcbride/sleeper-exposure/internal/interfaces/httpapi"
	"github.com/kmcbride/sleeper-exposure/internal/platform/cache"
	"github.com/kmcbride/sleeper-exposure/internal/platform/logging"
	"github.com/kmcbride/sleeper-exposure/internal/platform/resilience"
	"github.com/kmcbride/sleeper-exposure/internal/usecase"
)

func NewHTTPServer(cfg config.Config, logger *slog.Logger, appLogger *logging.Logger) (*http.Server, error) {
	if appLogger == nil {
		appLogger = logging.Default()
	}

	sleeperClient := sleeper.NewClient(sleeper.ClientConfig{
		BaseURL:    cfg.SleeperBaseURL,
		Timeout:    cfg.SleeperTimeout,
		MaxRetries: cfg.SleeperMaxRetries,
		Logger:     appLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SleeperCircuitEnabled,
			FailureThreshold: cfg.SleeperCircuitFailureCount,
			OpenTimeout:      cfg.SleeperCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SleeperCircuitHalfOpenMaxReq,
		},
	})

	crosswalkClient := crosswalk.NewClient(crosswalk.ClientConfig{
		SourceURL: cfg.CrosswalkSourceURL,
		Timeout:   cfg.CrosswalkTimeout,
		Logger:    appLogger,
	})

	collector := usecase.NewRosterCollector(sleeperClient, usecase.CollectorConfig{
		Sport:         cfg.ExposureSport,
		MaxWorkers:    cfg.ExposureMaxWorkers,
		FailurePolicy: cfg.ExposureFailurePolicy,
	}, appLogger)

	cacheTTL := cfg.CacheTTL
	if !cfg.CacheEnabled {
		cacheTTL = -1
	}

	exposureSvc := usecase.NewExposureService(
		collector,
		sleeperClient,
		crosswalkClient,
		cache.NewStore(cacheTTL),
		usecase.ExposureServiceConfig{
			Sport:      cfg.ExposureSport,
			SeasonType: cfg.ExposureSeasonType,
			RunTimeout: cfg.ExposureRunTimeout,
		},
		appLogger,
	)

	handler := httpapi.NewHandler(exposureSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}
