// Package events fans committed mint receipts out to RabbitMQ and to live
// websocket subscribers.
package events

import (
	"context"
	"errors"

	"niftacore/internal/mint"
)

// MintEvent is the message published for every committed mint.
type MintEvent struct {
	Type    string        `json:"type"`
	Receipt *mint.Receipt `json:"receipt"`
}

const TypeMintCommitted = "mint.committed"

// QueuePublisher is the subset of config.Publisher used here.
type QueuePublisher interface {
	Publish(ctx context.Context, message interface{}) error
}

// AMQPPublisher publishes receipts to a durable queue.
type AMQPPublisher struct {
	queue QueuePublisher
}

func NewAMQPPublisher(queue QueuePublisher) *AMQPPublisher {
	return &AMQPPublisher{queue: queue}
}

func (p *AMQPPublisher) PublishReceipt(ctx context.Context, r *mint.Receipt) error {
	return p.queue.Publish(ctx, MintEvent{Type: TypeMintCommitted, Receipt: r})
}

// Fanout delivers a receipt to every publisher and joins their errors.
type Fanout []mint.ReceiptPublisher

func (f Fanout) PublishReceipt(ctx context.Context, r *mint.Receipt) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishReceipt(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
