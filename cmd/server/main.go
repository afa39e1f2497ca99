// Package main is the entry point for the parish portal API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/auth"
	"parish-portal/internal/bot"
	"parish-portal/internal/config"
	"parish-portal/internal/game"
	"parish-portal/internal/game/coinflip"
	"parish-portal/internal/game/wheel"
	"parish-portal/internal/handler"
	"parish-portal/internal/notify"
	"parish-portal/internal/pkg/db"
	"parish-portal/internal/repository"
	"parish-portal/internal/scheduler"
	"parish-portal/internal/service"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	loc, err := cfg.Games.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	tokens, err := auth.New(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise tokens")
	}

	// Optional Telegram push channel
	var (
		telegramBot *bot.Bot
		pusher      service.Pusher
	)
	if cfg.Telegram.Enabled {
		telegramBot, err = bot.New(cfg.Telegram, false)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram bot")
		}
		pusher = telegramBot
	}

	store := repository.NewStore(dbPool.Pool)
	hub := notify.NewHub(notify.DefaultBuffer)

	points := service.NewPointsService(store)
	notifications := service.NewNotificationService(store, hub, pusher)
	duties := service.NewDutyService(store, points, notifications, loc)
	bets := service.NewBettingService(store, points, notifications)
	intentions := service.NewIntentionService(store, notifications, loc)

	games, err := game.NewRegistry(
		wheel.New(game.CryptoSource()),
		coinflip.New(game.CryptoSource(), cfg.Games.CoinFlip.MaxBet),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}
	arcade, err := service.NewArcadeService(store, points, games, loc, cfg.Games.LockTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create arcade")
	}

	log.Info().
		Int("game_count", games.Count()).
		Msg("Games registered")

	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(tokens, store.Users, handler.Services{
		Points:        points,
		Duties:        duties,
		Bets:          bets,
		Arcade:        arcade,
		Notifications: notifications,
		Intentions:    intentions,
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No WriteTimeout: it would cut off notification streams.
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	jobs := []scheduler.Job{{
		Name:     "bet-auto-lock",
		Schedule: scheduler.Every(cfg.Scheduler.AutoLockInterval),
		Run:      bets.AutoLockExpiredBets,
	}}
	if cfg.Scheduler.ArchiveEnabled {
		jobs = append(jobs, scheduler.Job{
			Name:     "intention-archive",
			Schedule: scheduler.WeeklyAt(loc, 23, 0, time.Wednesday, time.Sunday),
			Run:      intentions.ArchivePast,
		})
	}
	sched := scheduler.New(jobs...)
	sched.Start(ctx)

	if telegramBot != nil {
		go telegramBot.Start()
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if telegramBot != nil {
		telegramBot.Stop()
	}
	log.Info().Msg("Server stopped gracefully")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
