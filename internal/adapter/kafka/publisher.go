// Package kafka publishes hazard alerts to the alert topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/feelslike-weather-service/internal/observability"
)

// Alert is one hazard notification for a region.
type Alert struct {
	ID                  string    `json:"id"`
	Region              string    `json:"region"`
	Level               string    `json:"level"`
	Score               int       `json:"score"`
	ApparentTemperature *float64  `json:"apparentTemperature,omitempty"`
	IssuedAt            time.Time `json:"issuedAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces hazard alerts, suppressing repeats of the same region
// and level within the cooldown window. A level change always goes out.
type Publisher struct {
	writer   messageWriter
	cooldown time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	lastSent map[string]time.Time // key: region|level
}

// NewPublisher creates a Kafka producer for the alert topic.
func NewPublisher(brokers []string, topic string, cooldown time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, cooldown, clock, logger, metrics)
}

func newPublisher(w messageWriter, cooldown time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		writer:   w,
		cooldown: cooldown,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		lastSent: make(map[string]time.Time),
	}
}

// Publish sends the alerts that pass deduplication in a single write.
// Returns how many were sent and how many the cooldown suppressed.
func (p *Publisher) Publish(ctx context.Context, alerts []Alert) (sent, suppressed int, err error) {
	now := p.clock.Now()

	var msgs []kafkago.Message
	var keys []string
	for _, a := range alerts {
		key := a.Region + "|" + a.Level
		if p.recentlySent(key, now) {
			suppressed++
			continue
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.IssuedAt.IsZero() {
			a.IssuedAt = now
		}
		msg, err := serializeAlert(a)
		if err != nil {
			return 0, suppressed, err
		}
		msgs = append(msgs, msg)
		keys = append(keys, key)
	}

	if len(msgs) == 0 {
		return 0, suppressed, nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, suppressed, fmt.Errorf("write alerts: %w", err)
	}

	p.mu.Lock()
	for _, key := range keys {
		p.lastSent[key] = now
	}
	p.mu.Unlock()

	p.metrics.AlertsPublished.Add(float64(len(msgs)))
	p.logger.Info("alerts published", "sent", len(msgs), "suppressed", suppressed)
	return len(msgs), suppressed, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) recentlySent(key string, now time.Time) bool {
	if p.cooldown <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSent[key]
	return ok && now.Sub(last) < p.cooldown
}

func serializeAlert(a Alert) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "level", Value: []byte(a.Level)},
			{Key: "issued_at", Value: []byte(a.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
