package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// PaymentStatusEvent is the normalized payment notification published to the
// broker. Downstream consumers (CRM, e-mail) are external collaborators.
type PaymentStatusEvent struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	Amount        float64 `json:"amount,omitempty"`
	Source        string  `json:"source"` // "postback" | "status_poll"
	OccurredAt    string  `json:"occurred_at"`
}

type Producer struct {
	w *kafka.Writer
	v *Validator
}

func NewProducer(brokers []string, topic string, v *Validator) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		v: v,
	}
}

// Publish validates the event against the embedded schema and writes it keyed
// by transaction id. A nil producer silently drops (broker not configured).
func (p *Producer) Publish(ctx context.Context, ev PaymentStatusEvent) error {
	if p == nil {
		return nil
	}
	if err := p.v.Validate(ev); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.TransactionID),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}
