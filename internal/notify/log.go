package notify

import (
	"context"
	"log/slog"
)

// Log writes notifications to the process log. Default sink for development
// and for deployments where delivery is handled by an external consumer of
// the log stream.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, n Notification) error {
	args := []any{
		"target_user_id", n.TargetUserID,
		"kind", string(n.Kind),
	}
	for k, v := range n.Payload {
		args = append(args, "payload_"+k, v)
	}
	l.logger.InfoContext(ctx, "notification dispatched", args...)
	return nil
}
