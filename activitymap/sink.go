package activitymap

import (
	"context"

	auth "github.com/kodbank/go-bank-auth"
)

// LogSink writes every activity event as one structured log line. Failed
// attempts are logged at warn level.
type LogSink struct {
	logger auth.Logger
	opts   []Option
}

var _ auth.ActivitySink = (*LogSink)(nil)

func NewLogSink(logger auth.Logger, opts ...Option) *LogSink {
	return &LogSink{logger: logger, opts: opts}
}

func (s *LogSink) Record(_ context.Context, event auth.ActivityEvent) error {
	if s.logger == nil {
		return nil
	}

	rec := FromEvent(event, s.opts...)
	args := []any{
		"event", rec.Event,
		"outcome", rec.Outcome,
		"actor", rec.Actor,
		"at", rec.At,
	}
	if rec.UserID != "" {
		args = append(args, "user_id", rec.UserID)
	}
	if rec.Reason != "" {
		args = append(args, "reason", rec.Reason)
	}
	for key, value := range rec.Metadata {
		args = append(args, "meta."+key, value)
	}

	if rec.Failed() {
		s.logger.Warn("auth activity", args...)
		return nil
	}
	s.logger.Info("auth activity", args...)
	return nil
}
