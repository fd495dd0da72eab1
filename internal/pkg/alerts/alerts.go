// Package alerts publishes notices about payouts and role grants that reached FAILED.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/segmentio/kafka-go"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

const (
	KindPayoutFailed    = "payout.failed"
	KindRoleGrantFailed = "role_grant.failed"
)

// Alert describes one job that exhausted its attempts or was failed by the provider.
type Alert struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
	Close() error
}

// New returns a Kafka notifier when brokers are configured and a log notifier otherwise.
func New(cfg config.Alerts) Notifier {
	if len(cfg.Brokers) == 0 {
		return LogNotifier{}
	}
	log.Infof("[Alerts] Publishing failure alerts to kafka topic %s", cfg.Topic)
	return NewKafkaNotifier(cfg.Brokers, cfg.Topic)
}

type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
		},
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alert Alert) error {
	msg, err := messageFor(alert)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write alert to kafka: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// messageFor keys alerts by order so every alert for one order lands on the same partition.
func messageFor(alert Alert) (kafka.Message, error) {
	if alert.At.IsZero() {
		alert.At = time.Now().UTC()
	}
	value, err := json.Marshal(alert)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal alert: %w", err)
	}
	return kafka.Message{
		Key:   []byte(alert.OrderID),
		Value: value,
		Time:  alert.At,
		Headers: []kafka.Header{
			{Key: "alert-kind", Value: []byte(alert.Kind)},
		},
	}, nil
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, alert Alert) error {
	log.Errorf("[Alerts] %s id=%s order=%s attempts=%d error=%s", alert.Kind, alert.ID, alert.OrderID, alert.Attempts, alert.LastError)
	return nil
}

func (LogNotifier) Close() error { return nil }
