// Package events publishes domain events for other services to consume.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event names.
const (
	StudentRegistered    = "student.registered"
	InstructorRegistered = "instructor.registered"
	AnnouncementCreated  = "announcement.created"
	RegistrationRepaired = "registration.repaired"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher emits events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event string, data interface{}) error
	Close() error
}

// NATSPublisher sends events as core NATS messages on "<prefix>.<event>".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials the NATS server. An empty url yields a Noop publisher.
func Connect(url, prefix string, logger *zap.Logger) (Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(url) == "" {
		logger.Info("event publishing disabled")
		return Noop{}, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("portal-sabido-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event is published on.
func Subject(prefix, event string) string {
	prefix = strings.Trim(prefix, ". ")
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

// Publish marshals data into an Envelope and sends it.
func (p *NATSPublisher) Publish(ctx context.Context, event string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(Envelope{Event: event, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event, err)
	}
	subject := Subject(p.prefix, event)
	if err := p.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Noop discards events.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, interface{}) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
