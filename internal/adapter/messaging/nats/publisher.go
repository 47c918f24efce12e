package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DocumentUpdatedSubject = "apartments.document.updated"
	ImageDeletedSubject    = "apartments.image.deleted"
)

type DocumentUpdatedEvent struct {
	Listings  int   `json:"listings"`
	UpdatedAt int64 `json:"updatedAt"`
}

type ImageDeletedEvent struct {
	Key string `json:"key"`
}

func Connect(cfg config.NATSConfig, name string, log *logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Info("Successfully connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}

type Publisher struct {
	nc     *nats.Conn
	logger *logger.Logger
}

func NewPublisher(nc *nats.Conn, log *logger.Logger) *Publisher {
	return &Publisher{nc: nc, logger: log.Named("nats_publisher")}
}

func (p *Publisher) PublishDocumentUpdated(ctx context.Context, listings int) error {
	return p.publish(DocumentUpdatedSubject, DocumentUpdatedEvent{Listings: listings, UpdatedAt: time.Now().UnixMilli()})
}

func (p *Publisher) PublishImageDeleted(ctx context.Context, key string) error {
	return p.publish(ImageDeletedSubject, ImageDeletedEvent{Key: key})
}

func (p *Publisher) publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish NATS message", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Debug("Published NATS message", zap.String("subject", subject))
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("Error draining NATS connection", zap.Error(err))
		}
	}
}
