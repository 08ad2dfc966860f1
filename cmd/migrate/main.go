package main

import (
	"context"
	"os"
	"time"

	"adabot/internal/config"
	"adabot/internal/db"
	"adabot/internal/logging"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Log)

	database, err := db.Open(cfg.Database, cfg.Location, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error executing migration")
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("migration completed successfully")
}
