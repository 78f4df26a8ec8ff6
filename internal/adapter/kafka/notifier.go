// Package kafka implements the outbound notifier and the feedback consumer.
// Delivery rendering and command handling belong to the front end consuming
// the notification topic; this package only publishes and consumes events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/observability"
)

// Message kinds carried in the "kind" header of the notification topic.
const (
	kindAlert    = "alert"
	kindForecast = "forecast"
	kindError    = "error"
)

// Notifier publishes notification events to a Kafka topic.
// It implements engine.Notifier.
type Notifier struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewNotifier creates a Kafka producer for the notification topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger, metrics: metrics}
}

// alertEvent carries the alert id so the front end can attach the feedback
// prompt and route the answer back with the same id.
type alertEvent struct {
	AlertID         int64    `json:"alert_id"`
	Message         string   `json:"message"`
	FeedbackOptions []string `json:"feedback_options"`
}

type forecastEvent struct {
	Date      string  `json:"date"`
	RainMM    float64 `json:"rain_mm"`
	Condition string  `json:"condition"`
	Message   string  `json:"message"`
}

type errorEvent struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

// DeliverAlert publishes a risk alert with its feedback prompt.
func (n *Notifier) DeliverAlert(ctx context.Context, message string, alertID int64) error {
	event := alertEvent{
		AlertID:         alertID,
		Message:         message,
		FeedbackOptions: []string{domain.LabelGood, domain.LabelBad},
	}
	key := []byte("alert-" + strconv.FormatInt(alertID, 10))
	return n.publish(ctx, kindAlert, key, event)
}

// DeliverForecastAdvisory publishes a rain advisory for one forecast day.
func (n *Notifier) DeliverForecastAdvisory(ctx context.Context, date time.Time, rainMM float64, condition string) error {
	day := date.Format("2006-01-02")
	event := forecastEvent{
		Date:      day,
		RainMM:    rainMM,
		Condition: condition,
		Message: fmt.Sprintf(
			"Rain advisory\nExpected precipitation of %.1f mm on %s.\nForecast condition: %s.",
			rainMM, date.Format("Monday, 02 January"), condition,
		),
	}
	return n.publish(ctx, kindForecast, []byte("forecast-"+day), event)
}

// DeliverError publishes a system error report.
func (n *Notifier) DeliverError(ctx context.Context, component, errText string) error {
	event := errorEvent{Component: component, Error: errText}
	return n.publish(ctx, kindError, []byte("error-"+component), event)
}

func (n *Notifier) publish(ctx context.Context, kind string, key []byte, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize %s event: %w", kind, err)
	}

	msg := kafkago.Message{
		Key:   key,
		Value: value,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "sent_at", Value: []byte(domain.Timestamp().Format(time.RFC3339))},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", kind, err)
	}

	n.metrics.DeliveriesTotal.WithLabelValues(kind).Inc()
	n.logger.Debug("notification published", "kind", kind, "key", string(key))
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}
