// Command booking_sweeper marks finished stays as completed. Run it from cron
// when the api's in-process sweep is not enough.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"staycation/internal/config"
	"staycation/internal/database"
	"staycation/internal/modules/booking"
	"staycation/internal/pkg/logger"
	"staycation/internal/repository"
)

func main() {
	configPath := flag.String("config", "config.toml", "optional TOML config file")
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := booking.NewService(
		repository.NewBookingRepository(db),
		repository.NewRoomRepository(db),
		nil, nil, nil,
		log,
		cfg.Location,
	)
	n, err := svc.CompleteFinished(ctx)
	if err != nil {
		log.Fatal().Err(err).Int("completed", n).Msg("booking sweep failed")
	}
	log.Info().Int("completed", n).Msg("booking sweep completed")
}
