package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// ConsoleSender logs messages instead of delivering them. Used in development.
type ConsoleSender struct {
	log zerolog.Logger
}

func NewConsoleSender(log zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.log.Info().
		Str("kind", msg.Kind).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("console mail")
	return nil
}
