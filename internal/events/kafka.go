package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Producer writes events to Kafka behind a circuit breaker so a dead broker
// fails fast instead of stalling enrollment requests.
type Producer struct {
	writer messageWriter
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, bc BreakerConfig, log *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return newProducer(w, bc, log)
}

func newProducer(w messageWriter, bc BreakerConfig, log *zap.Logger) *Producer {
	if bc.MaxFailures == 0 {
		bc.MaxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &Producer{writer: w, cb: gobreaker.NewCircuitBreaker(st), log: log}
}

func (p *Producer) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.EnrolleeID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), outcome).Inc()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "ok").Inc()
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the enrollment topic and feeds each event to a handler.
type Consumer struct {
	reader  messageReader
	handler Handler
	log     *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, handler: handler, log: log}
}

// Start blocks until ctx is cancelled. Messages that fail to decode or
// handle are logged and committed so one bad record cannot wedge the group.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Warn("dropping undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		} else if err := c.handler.HandleEvent(ctx, ev); err != nil {
			c.log.Error("event handler failed", zap.String("type", string(ev.Type)), zap.String("event_id", ev.ID), zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
