package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/observability"
)

// FeedbackEvent is the wire format on the feedback topic: a human's answer
// to one alert's feedback prompt.
type FeedbackEvent struct {
	AlertID int64  `json:"alert_id"`
	Label   string `json:"label"`
}

// FeedbackStore persists validated feedback labels.
type FeedbackStore interface {
	InsertFeedback(ctx context.Context, alertID int64, label string) error
}

// FeedbackConsumer reads feedback events from Kafka and persists them.
// Malformed or unrecognized events are logged and skipped; the loop only
// stops on context cancellation.
type FeedbackConsumer struct {
	reader  *kafkago.Reader
	store   FeedbackStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFeedbackConsumer creates a consumer-group reader on the feedback topic.
func NewFeedbackConsumer(brokers []string, topic, groupID string, store FeedbackStore, logger *slog.Logger, metrics *observability.Metrics) *FeedbackConsumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &FeedbackConsumer{reader: reader, store: store, logger: logger, metrics: metrics}
}

// Run consumes feedback events until the context is cancelled.
func (c *FeedbackConsumer) Run(ctx context.Context) error {
	c.logger.Info("feedback consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("feedback consumer stopping")
				return nil
			}
			c.logger.Error("read feedback message failed", "error", err)
			if !sleepWithContext(ctx, time.Second) {
				return nil
			}
			continue
		}

		c.handle(ctx, msg)
	}
}

func (c *FeedbackConsumer) handle(ctx context.Context, msg kafkago.Message) {
	event, err := parseFeedbackEvent(msg.Value)
	if err != nil {
		c.metrics.FeedbackConsumed.WithLabelValues("invalid").Inc()
		c.logger.Warn("skipping malformed feedback event",
			"error", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return
	}

	if err := c.store.InsertFeedback(ctx, event.AlertID, event.Label); err != nil {
		c.metrics.FeedbackConsumed.WithLabelValues("failed").Inc()
		c.metrics.StorageErrors.Inc()
		c.logger.Error("persist feedback failed", "alert_id", event.AlertID, "error", err)
		return
	}

	c.metrics.FeedbackConsumed.WithLabelValues("stored").Inc()
	c.logger.Info("feedback recorded", "alert_id", event.AlertID, "label", event.Label)
}

func (c *FeedbackConsumer) Close() error {
	return c.reader.Close()
}

// parseFeedbackEvent deserializes and validates one feedback event.
func parseFeedbackEvent(data []byte) (FeedbackEvent, error) {
	var event FeedbackEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return FeedbackEvent{}, fmt.Errorf("parse feedback event: %w", err)
	}
	if event.AlertID <= 0 {
		return FeedbackEvent{}, fmt.Errorf("feedback event has invalid alert_id %d", event.AlertID)
	}
	if !domain.ValidLabel(event.Label) {
		return FeedbackEvent{}, fmt.Errorf("feedback event has unrecognized label %q", event.Label)
	}
	return event, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
