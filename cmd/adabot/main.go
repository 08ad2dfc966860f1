package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adabot/internal/bot"
	"adabot/internal/config"
	"adabot/internal/db"
	"adabot/internal/logging"
	"adabot/internal/reminder"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log)
	if envErr != nil {
		logger.Debug().Msg("no .env file found")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Str("tz", cfg.Timezone).Msg("starting adabot")

	database, err := db.Open(cfg.Database, cfg.Location, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	discordBot, err := bot.New(cfg, database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bot")
	}

	policy, err := reminder.NewPolicy(cfg.Scheduler.Policy, cfg.Scheduler.OverdueInterval)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid reminder policy")
	}
	scheduler := reminder.New(reminder.Options{
		Store:     database,
		Tenants:   discordBot.Tenants(),
		Directory: discordBot.Directory(),
		Notifier:  discordBot.Notifier(),
		Policy:    policy,
		Location:  cfg.Location,
		Tick:      cfg.Scheduler.Tick,
		Log:       logger,
	})

	if err := discordBot.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start bot")
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start reminder scheduler")
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn().Err(err).Msg("systemd notify failed")
	} else if ok {
		logger.Debug().Msg("notified systemd")
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)

	if err := discordBot.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	logger.Info().Msg("application shutdown complete")
}
