package mailer

import (
	"fmt"

	"github.com/rs/zerolog"

	"staycation/internal/config"
)

// NewSender picks the delivery backend configured by MAIL_DRIVER.
func NewSender(cfg *config.Config, log zerolog.Logger) (Sender, error) {
	switch cfg.Mail.Driver {
	case config.MailConsole:
		return NewConsoleSender(log), nil
	case config.MailResend:
		return NewResendClient(cfg.Mail.ResendAPIKey), nil
	case config.MailQueue:
		return NewQueuePublisher(cfg.RabbitMQURL), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}
