package events

import (
	"context"

	"go.uber.org/zap"
)

// LocalPublisher hands events straight to in-process handlers. It is used
// when Kafka is disabled.
type LocalPublisher struct {
	handlers []Handler
	log      *zap.Logger
}

func NewLocalPublisher(log *zap.Logger, handlers ...Handler) *LocalPublisher {
	return &LocalPublisher{handlers: handlers, log: log}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev Event) error {
	for _, h := range p.handlers {
		if err := h.HandleEvent(ctx, ev); err != nil {
			p.log.Warn("local event handler failed",
				zap.String("type", string(ev.Type)),
				zap.String("event_id", ev.ID),
				zap.Error(err))
		}
	}
	return nil
}
