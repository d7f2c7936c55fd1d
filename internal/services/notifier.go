package services

import (
	"context"

	"learnhub/internal/events"

	"go.uber.org/zap"
)

type eventNotifier struct {
	bus    events.EventBus
	logger *zap.Logger
}

// NewActivityNotifier publishes achievement events on the bus without waiting
// for any subscriber
func NewActivityNotifier(bus events.EventBus, logger *zap.Logger) ActivityNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &eventNotifier{bus: bus, logger: logger}
}

func (n *eventNotifier) Notify(ctx context.Context, event events.Event) {
	if n.bus == nil || event == nil {
		return
	}
	if err := n.bus.PublishAsync(ctx, event); err != nil {
		n.logger.Warn("Failed to publish achievement event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
			zap.Error(err),
		)
	}
}
