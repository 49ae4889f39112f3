package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"travel-buddy-server/config"
	"travel-buddy-server/database"
	"travel-buddy-server/logger"
	"travel-buddy-server/middleware"
	"travel-buddy-server/repository"
	"travel-buddy-server/routes"
	"travel-buddy-server/scheduler"
	ws "travel-buddy-server/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	config.Load()
	cfg := config.AppConfig
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	sugar, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer sugar.Sync() //nolint:errcheck

	if err := run(cfg, sugar); err != nil {
		sugar.Fatalw("Server exited with error", "error", fmt.Sprintf("%+v", err))
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	loc, err := cfg.Batch.Location()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database, log.Named("database"))
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(cfg.Realtime.SendBuffer, log.Named("realtime"))
	go hub.Run(ctx)

	notifications := repository.NewNotificationRepository(db)
	sched := scheduler.New(scheduler.Options{
		EnableTravelReminders:     cfg.Batch.EnableTravelReminders,
		EnableVipReminders:        cfg.Batch.EnableVipReminders,
		EnableTravelStatusUpdates: cfg.Batch.EnableTravelStatusUpdates,
		EnableRatingReminders:     cfg.Batch.EnableRatingReminders,
		Location:                  loc,
		LeaseTTL:                  cfg.Batch.LeaseTTL,
	}, scheduler.Dependencies{
		Trips:         repository.NewTravelRepository(db),
		Accounts:      repository.NewAccountRepository(db),
		Notifications: notifications,
		Publisher:     hub,
		Locker:        repository.NewLeaseRepository(db),
	}, log)
	sched.Start()

	for _, name := range cfg.Batch.RunOnStart {
		go func(name string) {
			if _, err := sched.RunNow(ctx, name); err != nil {
				log.Warnw("Startup run skipped", "job", name, "error", err)
			}
		}(name)
	}

	limiter := middleware.NewRateLimiter(rate.Every(time.Second), 20)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(time.Hour)
			}
		}
	}()

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	routes.SetupRoutes(router, cfg, routes.Dependencies{
		Notifications: notifications,
		Hub:           hub,
		Upgrader:      ws.NewUpgrader(cfg.Realtime.AllowedOrigins),
		Ping:          func(ctx context.Context) error { return database.Ping(ctx, db) },
		Schedules:     sched,
		Limiter:       limiter,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("Server listening", "port", cfg.Server.Port, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "http server")
		}
	case <-ctx.Done():
		log.Infow("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, errors.Wrap(err, "http shutdown"))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	log.Infow("Server stopped")
	return errors.Join(errs...)
}
