package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/analytics"
	"github.com/iliyamo/expo-appointments/internal/config"
	"github.com/iliyamo/expo-appointments/internal/database"
	"github.com/iliyamo/expo-appointments/internal/dialogue"
	"github.com/iliyamo/expo-appointments/internal/handler"
	"github.com/iliyamo/expo-appointments/internal/logger"
	"github.com/iliyamo/expo-appointments/internal/middleware"
	"github.com/iliyamo/expo-appointments/internal/queue"
	"github.com/iliyamo/expo-appointments/internal/repository"
	"github.com/iliyamo/expo-appointments/internal/router"
	"github.com/iliyamo/expo-appointments/internal/service"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel, "expo-api")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		zl.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		zl.Fatal("database migrate failed", zap.Error(err))
	}
	cancel()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		zl.Warn("redis unreachable; cache and chat disabled, rate limit is per replica", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}

	slots := repository.NewSlotRepo(db)
	schedules := repository.NewScheduleRepo(db)
	bookings := repository.NewBookingRepo(db)
	exhibitors := repository.NewExhibitorRepo(db)
	store := repository.NewStore(db, slots, schedules, bookings)

	var recorder analytics.Recorder = analytics.NewSQLRecorder(repository.NewAnalyticsRepo(db))
	if cfg.AMQP.Sink == config.SinkAMQP {
		recorder = queue.NewPublisher(cfg.AMQP, zl)
	}

	bookingSvc := service.NewBookingService(store, bookings, exhibitors, recorder, zl)
	calendarSvc := service.NewCalendarService(exhibitors, slots, store, schedules, zl)
	availabilitySvc := service.NewAvailabilityService(slots, schedules, bookings)

	var chat handler.Dialogue
	if rdb != nil {
		chat = dialogue.NewMachine(dialogue.NewRedisStore(rdb, cfg.Dialogue), repository.NewDirectoryRepo(db), dialogue.BcryptHasher(cfg.BcryptCost), zl)
	}

	checks := map[string]handler.Check{"db": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := newEcho(cfg, zl)
	router.RegisterRoutes(e, router.Deps{
		JWTSecret:    cfg.JWTSecret,
		Booking:      handler.NewBookingHandler(bookingSvc, zl),
		Exhibitor:    handler.NewExhibitorHandler(bookingSvc, calendarSvc, zl),
		Availability: handler.NewAvailabilityHandler(availabilitySvc, zl),
		Chat:         handler.NewChatHandler(chat, zl),
		Cache:        middleware.NewRedisCache(cfg.Cache, rdb, zl),
		Limiter:      middleware.NewTokenBucket(cfg.RateLimit, rdb, zl),
		Checks:       checks,
	})

	serve(e, cfg, zl)
}

func newEcho(cfg config.Config, zl *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	return e
}

// serve runs until SIGINT or SIGTERM, then drains in-flight requests.
func serve(e *echo.Echo, cfg config.Config, zl *zap.Logger) {
	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("analytics_sink", cfg.AMQP.Sink))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}
