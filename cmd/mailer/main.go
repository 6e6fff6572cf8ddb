// Command mailer drains the outbound email queue filled by the api when
// MAIL_DRIVER=queue and delivers through Resend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"staycation/internal/config"
	"staycation/internal/mailer"
	"staycation/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "optional TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	if cfg.RabbitMQURL == "" {
		log.Fatal().Msg("RABBITMQ_URL is required")
	}

	var sender mailer.Sender
	if cfg.Mail.ResendAPIKey != "" {
		sender = mailer.NewResendClient(cfg.Mail.ResendAPIKey)
	} else {
		if cfg.IsProdLike() {
			log.Fatal().Msg("RESEND_API_KEY is required in prod/release")
		}
		log.Warn().Msg("RESEND_API_KEY not set, logging emails instead of sending")
		sender = mailer.NewConsoleSender(log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mailer.NewWorker(cfg.RabbitMQURL, sender, log).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("mail worker stopped")
	}
	log.Info().Msg("mail worker stopped")
}
