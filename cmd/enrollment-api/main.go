package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/enrollment-api/api/swagger"
	"github.com/noah-isme/enrollment-api/internal/dispatch"
	"github.com/noah-isme/enrollment-api/internal/handler"
	"github.com/noah-isme/enrollment-api/internal/middleware"
	"github.com/noah-isme/enrollment-api/internal/repository"
	"github.com/noah-isme/enrollment-api/internal/service"
	"github.com/noah-isme/enrollment-api/pkg/cache"
	"github.com/noah-isme/enrollment-api/pkg/config"
	"github.com/noah-isme/enrollment-api/pkg/database"
	"github.com/noah-isme/enrollment-api/pkg/logger"
)

// @title Enrollment API
// @version 1.0.0
// @description Student registration and course enrollment
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	checks := map[string]handler.ReadinessCheck{}

	uow, closeStore, err := openStore(ctx, cfg, logr, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		repo := repository.NewCacheRepository(client)
		defer repo.Close() //nolint:errcheck
		checks["redis"] = repo.Ping
		cacheRepo = repo
	}
	listCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	validate := validator.New()
	commands := service.NewStudentCommandService(uow, listCache, validate, logr)
	queries := service.NewStudentQueryService(uow, listCache, logr)

	reg := dispatch.NewRegistry(dispatch.WithLogger(logr), dispatch.WithObserver(metrics))
	service.RegisterHandlers(reg, commands, queries)
	mediator, err := reg.Build(service.RequiredKinds()...)
	if err != nil {
		return fmt.Errorf("build mediator: %w", err)
	}
	logr.Info("mediator ready", zap.Int("handlers", len(mediator.Kinds())))

	var verifier *middleware.TokenVerifier
	if cfg.Auth.Enabled {
		verifier = middleware.NewTokenVerifier(cfg.Auth.Secret)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Verifier:       verifier,
		Students:       handler.NewStudentHandler(mediator, service.NewExportService(nil, nil, logr)),
		Courses:        handler.NewCourseHandler(mediator),
		Metrics:        handler.NewMetricsHandler(metrics, checks, logr),
		Observer:       metrics,
		Logger:         logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logr.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.ReadinessCheck) (service.UnitOfWorkFactory, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logr.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(repository.DefaultCourses()...), func() {}, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, logr); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	checks["postgres"] = db.PingContext
	return repository.NewPostgresUnitOfWorkFactory(db, logr), func() { _ = db.Close() }, nil
}
