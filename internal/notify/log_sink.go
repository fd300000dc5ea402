package notify

import (
	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/rs/zerolog"
)

// LogSink writes requests to the log instead of delivering them.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(req models.NotificationRequest) error {
	s.logger.Info().
		Str("identifier", req.Identifier).
		Str("title", req.Title).
		Str("body", req.Body).
		Interface("payload", req.Payload).
		Msg("Notification (dry run)")
	return nil
}
