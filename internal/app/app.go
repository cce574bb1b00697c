package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voltbook/internal/auth"
	"voltbook/internal/config"
	"voltbook/internal/db"
	httpserver "voltbook/internal/http"
	"voltbook/internal/http/handlers"
	"voltbook/internal/http/middleware"
	libredis "voltbook/internal/redis"
	"voltbook/internal/redisstore"
	"voltbook/internal/repository"
	"voltbook/internal/service"
	"voltbook/internal/ws"
)

const wsWriteTimeout = 10 * time.Second

// App wires charging-service dependencies.
type App struct {
	cfg         *config.Config
	server      *httpserver.Server
	wsServer    *ws.Server
	charging    *service.ChargingService
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	bookingRepo := repository.NewBookingRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	stationRepo := repository.NewStationRepository(sqlDB)
	liveStore := redisstore.NewStore(redisClient, cfg.LiveSnapshotTTL())

	hub := ws.NewHub(logger)
	monitor := service.NewStallMonitor(cfg.StallTimeout())

	charging := service.NewChargingService(
		bookingRepo,
		sessionRepo,
		stationRepo,
		liveStore,
		hub,
		monitor,
		logger,
	)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, time.Hour)
	wsServer := ws.NewServer(hub, tokens, bookingRepo, wsWriteTimeout, logger)

	chargingHandler := handlers.NewChargingHandler(charging, logger)
	bookingHandler := handlers.NewBookingChargingHandler(charging, logger)

	routes := httpserver.Routes{
		ChargingUpdate: chargingHandler.HandleUpdate,
		ChargingStop:   chargingHandler.HandleStop,
		ActiveSessions: chargingHandler.HandleActive,
		ChargingStatus: bookingHandler.HandleStatus,
		CompleteByUser: bookingHandler.HandleComplete,
		WebSocket:      wsServer.HandleWS,
		Health:         handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes, middleware.Auth(tokens))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		cfg:         cfg,
		server:      server,
		wsServer:    wsServer,
		charging:    charging,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the stall sweeper and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	a.wsServer.SetBaseContext(ctx)

	if err := a.charging.ReloadStallTracking(ctx); err != nil {
		a.logger.Warn("failed to reload stall tracking", zap.Error(err))
	}

	go a.charging.RunStallSweeper(ctx, a.cfg.SweepInterval())

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
