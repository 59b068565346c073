package crud

import (
	"fmt"
	"log/slog"
)

// Notifier is the user-facing notification channel. Both methods are
// fire-and-forget: they must not block and whatever they do internally never
// propagates back into the mutation pipeline.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NewLogNotifier returns a Notifier that writes toast-style messages to the
// given logger. It is the default when no notifier is configured.
func NewLogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &logNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Success(message string) {
	n.logger.Info(message)
}

func (n *logNotifier) Error(message string) {
	n.logger.Warn(message)
}

// Messages are the user-facing texts for mutation outcomes. Empty fields fall
// back to entity-name defaults.
type Messages struct {
	Created      string
	Updated      string
	Deleted      string
	CreateFailed string
	UpdateFailed string
	DeleteFailed string
}

func (m Messages) withDefaults(entity string) Messages {
	def := func(current, format string) string {
		if current != "" {
			return current
		}
		return fmt.Sprintf(format, entity)
	}
	return Messages{
		Created:      def(m.Created, "%s created"),
		Updated:      def(m.Updated, "%s updated"),
		Deleted:      def(m.Deleted, "%s deleted"),
		CreateFailed: def(m.CreateFailed, "failed to create %s"),
		UpdateFailed: def(m.UpdateFailed, "failed to update %s"),
		DeleteFailed: def(m.DeleteFailed, "failed to delete %s"),
	}
}
