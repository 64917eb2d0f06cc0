package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medicalmuneras/internal/config"
	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/repository"
	"medicalmuneras/internal/router"
	"medicalmuneras/internal/service"
	"medicalmuneras/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("unknown timezone, using UTC")
		loc = time.UTC
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Composition root ─────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	locker := infra.NewRedisLocker(rdb, time.Duration(cfg.LockTimeoutSeconds)*time.Second)

	remisionRepo := repository.NewRemisionRepository(db)
	usuarioRepo := repository.NewUsuarioRepository(db)

	reporteSvc := service.NewReporteService(remisionRepo, rdb, loc)
	remisionSvc := service.NewRemisionService(remisionRepo, locker, dispatcher, reporteSvc, service.ComprobanteConfig{
		StoragePath:  cfg.ComprobanteStoragePath,
		BusinessName: cfg.BusinessName,
		Location:     loc,
	})
	authSvc := service.NewAuthService(usuarioRepo, cfg)

	// ── Background work ──────────────────────────────────────────────────────
	pool := worker.NewPool(rdb, &worker.WorkerHandlers{
		Comprobante: worker.NewComprobanteWorker(remisionRepo, dispatcher, cfg.ComprobanteStoragePath, cfg.BusinessName, loc),
		Email:       worker.NewEmailWorker(mailer),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)

	reportCron, err := worker.NewReportCron(cfg.ReportCronSchedule, loc, reporteSvc.RefrescarMensual)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReportCronSchedule).Msg("invalid REPORT_CRON_SCHEDULE")
	}
	reportCron.Start()

	r := router.New(cfg, router.Deps{
		DB:        db,
		Redis:     rdb,
		SMTPCB:    mailer.Breaker(),
		Auth:      authSvc,
		Remisions: remisionSvc,
		Reportes:  reporteSvc,
		Stop:      ctx.Done(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("remisiones backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	reportCron.Stop()
	pool.Wait()
	_ = rdb.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: pretty console in development, JSON in production.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "remisiones").Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
