package services

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogDispatcher пишет код в лог вместо отправки. Только для локальной разработки.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher { return &LogDispatcher{} }

func (LogDispatcher) Send(_ context.Context, to, code string, kind ChallengeKind) error {
	log.Warn().
		Str("to", to).
		Str("kind", kind.String()).
		Str("code", code).
		Msg("[email][log] verification code not delivered, printed instead")
	return nil
}
