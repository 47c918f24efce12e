package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubscribeDocumentUpdated calls onUpdate for each document change event
// until ctx is done.
func SubscribeDocumentUpdated(ctx context.Context, nc *nats.Conn, log *logger.Logger, onUpdate func(DocumentUpdatedEvent)) error {
	events := make(chan *nats.Msg, 16)
	sub, err := nc.ChanSubscribe(DocumentUpdatedSubject, events)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", DocumentUpdatedSubject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn("Failed to unsubscribe", zap.String("subject", DocumentUpdatedSubject), zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-events:
			var ev DocumentUpdatedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Warn("Dropping malformed document event", zap.Error(err))
				continue
			}
			onUpdate(ev)
		}
	}
}
