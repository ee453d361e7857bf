// Package app wires the sensor hub dependency graph.
package app

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sensorhub/internal/config"
	httpserver "sensorhub/internal/http"
	"sensorhub/internal/http/handlers"
	"sensorhub/internal/metric"
	"sensorhub/internal/models"
	"sensorhub/internal/queue"
	"sensorhub/internal/reliability"
	"sensorhub/internal/repository"
	"sensorhub/internal/sensorcfg"
	"sensorhub/internal/service"
	"sensorhub/internal/ws"
	libdb "sensorhub/libs/db"
	libredis "sensorhub/libs/redis"
)

// App holds the process-lifetime components.
type App struct {
	server      *httpserver.Server
	ingest      *service.IngestService
	roller      *reliability.Roller
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := metric.New(registry)

	sensorRepo := repository.NewSensorRepository(sqlDB)
	readingRepo := repository.NewReadingRepository(sqlDB)
	failureRepo := repository.NewFailureRepository(sqlDB)
	machineRepo := repository.NewMachineRepository(sqlDB)
	kpiRepo := repository.NewKPIRepository(sqlDB)

	resolver := sensorcfg.NewResolver(sensorcfg.NewRedisCache(redisClient), sensorRepo, logger)

	hub := ws.NewHub(logger, metrics)
	wsServer := ws.NewServer(hub, cfg.Auth.JWTSecret, cfg.WS.WriteTimeout, cfg.WS.PingInterval, logger)

	buffer := queue.New[models.Reading](cfg.Ingest.QueueCapacity, logger)
	ingest := service.NewIngestService(resolver, buffer, readingRepo, sensorRepo, hub, logger, metrics)
	analyze := service.NewAnalyzeService(machineRepo, sensorRepo, readingRepo, cfg.Ingest.HistoryLimit, logger)

	engine := reliability.NewEngine(failureRepo, machineRepo, sensorRepo)
	roller := reliability.NewRoller(engine, machineRepo, kpiRepo, cfg.Rollup.Interval, logger, metrics)

	routes := httpserver.Routes{
		Ingest:         handlers.NewIngestHandler(ingest, logger),
		SensorUpsert:   handlers.NewSensorUpsertHandler(resolver, logger),
		WS:             wsServer.HandleWS,
		SensorMetrics:  handlers.NewSensorMetricsHandler(engine, logger),
		SensorHealth:   handlers.NewSensorHealthHandler(sensorRepo, logger),
		MachineMetrics: handlers.NewMachineMetricsHandler(engine, logger),
		IngenioMetrics: handlers.NewIngenioMetricsHandler(engine, logger),
		AnalyzeMachine: handlers.NewAnalyzeMachineHandler(analyze, logger),
		Prometheus:     metric.Handler(registry),
		Health:         handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		ingest:      ingest,
		roller:      roller,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run attaches the persistence consumer, starts the rollup loop and serves
// HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.ingest.Start(ctx)
	go a.roller.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
