// Package events publishes payment lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const TypePaymentStatusChanged = "payment.status_changed"

type PaymentStatusChanged struct {
	Type          string    `json:"type"`
	PaymentID     string    `json:"payment_id"`
	StudentID     string    `json:"student_id"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        int64     `json:"amount"`
	PaymentType   string    `json:"payment_type"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	Source        string    `json:"source"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, e PaymentStatusChanged) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.SugaredLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debugf(msg, args...) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Errorf(msg, args...) }),
	}

	return &KafkaPublisher{writer: writer, timeout: writer.WriteTimeout, logger: logger}
}

// PublishStatusChanged keys the message by order id so every event for one
// order lands on the same partition in order.
func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, e PaymentStatusChanged) error {
	if e.Type == "" {
		e.Type = TypePaymentStatusChanged
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	produceCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(produceCtx, kafka.Message{
		Key:   []byte(e.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to produce payment event: %w", err)
	}
	p.logger.Debugw("payment event produced", "order_id", e.OrderID, "status", e.NewStatus)
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka publisher: %w", err)
	}
	return nil
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, PaymentStatusChanged) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
