// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fieldcrm-service/internal/cache"
	"fieldcrm-service/internal/config"
	"fieldcrm-service/internal/db"
	reportHandler "fieldcrm-service/internal/handlers/report"
	visitHandler "fieldcrm-service/internal/handlers/visit"
	"fieldcrm-service/internal/middleware"
	"fieldcrm-service/internal/pkg/jwt"
	"fieldcrm-service/internal/repository/postgres"
	"fieldcrm-service/internal/service/access"
	reportUsecase "fieldcrm-service/internal/service/report"
	visitUsecase "fieldcrm-service/internal/service/visit"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	// ----- PostgreSQL -----
	pg, err := postgres.Connect(ctx, s.cfg.DatabaseURL, s.cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pg.Close()
	s.logger.Info("connected to postgres")

	health := map[string]HealthChecker{"postgres": pg.Ping}

	// ----- Redis (optional) -----
	scopeCache, redisHealth, closeRedis := s.connectScopeCache(ctx)
	defer closeRedis()
	if redisHealth != nil {
		health["redis"] = redisHealth
	}

	// ----- JWT -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWTPublicKeyPath, s.cfg.JWTIssuer, s.cfg.JWTAudience)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Repositories -----
	visitRepo := postgres.NewVisitRepository(pg.Pool())
	referenceRepo := postgres.NewReferenceRepository(pg.Pool())

	// ----- Services -----
	var profileCache access.ProfileCache
	if scopeCache != nil {
		profileCache = scopeCache
	}
	guard := access.NewGuard(referenceRepo, profileCache, s.logger)
	visitService := visitUsecase.NewVisitService(visitRepo, referenceRepo, guard, s.logger)
	reportService := reportUsecase.NewReportService(visitRepo, referenceRepo, guard, s.logger)

	// ----- Router -----
	limits := visitUsecase.Limits{DefaultPageSize: s.cfg.DefaultPageSize, MaxPageSize: s.cfg.MaxPageSize}
	SetupRouter(s.engine, s.logger, &Handlers{
		VisitHandler:   visitHandler.NewVisitHandler(visitService, limits, s.logger),
		ReportHandler:  reportHandler.NewReportHandler(reportService, s.cfg.ReportTimezone, s.logger),
		AuthMiddleware: middleware.NewAuthMiddleware(verifier, s.logger),
		Health:         health,
	})

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           middleware.NewCORS(s.cfg.CORSAllowedOrigins)(s.engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Migrate applies pending schema migrations and exits.
func Migrate(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	pg, err := postgres.Connect(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pg.Close()

	return db.Migrate(ctx, pg.Pool(), logger)
}

// connectScopeCache returns a nil cache when Redis is not configured or not
// reachable; the guard then reads straight from Postgres.
func (s *Server) connectScopeCache(ctx context.Context) (*cache.ScopeCache, HealthChecker, func()) {
	if s.cfg.RedisAddr == "" {
		s.logger.Warn("REDIS_ADDR not set, rep scope cache disabled")
		return nil, nil, func() {}
	}

	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		s.logger.Warn("redis unavailable, rep scope cache disabled", zap.String("addr", s.cfg.RedisAddr), zap.Error(err))
		return nil, nil, func() {}
	}
	s.logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	scopeCache := cache.NewScopeCache(redisClient, s.cfg.ScopeCacheTTL, s.logger)
	return scopeCache, redisPing(redisClient), func() { _ = redisClient.Close() }
}

func redisPing(client *redis.Client) HealthChecker {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
