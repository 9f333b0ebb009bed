package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/yferras/clinic-api/config"
	"github.com/yferras/clinic-api/internal/handler"
	appointmentHandler "github.com/yferras/clinic-api/internal/handler/appointment"
	userHandler "github.com/yferras/clinic-api/internal/handler/user"
	"github.com/yferras/clinic-api/internal/middleware"
	"github.com/yferras/clinic-api/internal/repository/postgres"
	redisrepo "github.com/yferras/clinic-api/internal/repository/redis"
	"github.com/yferras/clinic-api/internal/router"
	appointmentService "github.com/yferras/clinic-api/internal/service/appointment"
	userService "github.com/yferras/clinic-api/internal/service/user"
	"github.com/yferras/clinic-api/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logg := logger.Setup(cfg.Logger)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	lockStore, err := redisrepo.NewSlotLockStore(cfg.Redis, &logg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	// Services
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		scheduleRepo,
		userRepo,
		roleRepo,
		lockStore,
		logg,
		cfg.Scheduling,
	)
	userSvc := userService.NewService(userRepo, roleRepo)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, userRepo)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)
	userH := userHandler.NewHandler(userSvc)
	healthH := handler.NewHealthHandler(db)

	routerCfg := router.Config{
		Timeout:    cfg.Server.RequestTimeout,
		CORSConfig: middleware.DefaultCORSConfig(),
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(authMiddleware, appointmentH, userH, healthH, routerCfg)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
