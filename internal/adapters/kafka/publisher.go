package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"homesquare/internal/adapters/observability"
	"homesquare/internal/domain"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type eventPayload struct {
	domain.AnalysisEvent
	CreatedAt string `json:"created_at"`
}

// Publisher writes one message per analysis, keyed by listing URL (or ZIP
// when there is no URL) so events for the same home stay ordered.
type Publisher struct {
	w   messageWriter
	now func() time.Time
}

func NewPublisher(addr, topic string) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(addr),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Snappy,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
	})
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.AnalysisEvent) error {
	msg, err := p.message(ev)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.w.WriteMessages(ctx, msg)
	status := 200
	if err != nil {
		status = 500
	}
	observability.ObserveExternal("kafka", "write", status, time.Since(start))
	if err != nil {
		return fmt.Errorf("kafka: publish analysis: %w", err)
	}
	return nil
}

func (p *Publisher) message(ev domain.AnalysisEvent) (kafka.Message, error) {
	payload, err := json.Marshal(eventPayload{AnalysisEvent: ev, CreatedAt: p.now().UTC().Format(time.RFC3339)})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode event: %w", err)
	}
	key := ev.URL
	if key == "" && ev.ZipCode != nil {
		key = "zip:" + *ev.ZipCode
	}
	msg := kafka.Message{
		Value:   payload,
		Headers: []kafka.Header{{Key: "label", Value: []byte(ev.Result.Label)}},
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

func (p *Publisher) Close() error { return p.w.Close() }
