package mint

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Clock supplies the current time. Replicated deployments should share one
// monotonic source so deadline checks agree across nodes.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock at second resolution in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// PaymentIntent describes the funds a mint settles.
type PaymentIntent struct {
	ReceiptID      string
	CollectionID   string
	Minter         string
	Quantity       uint64
	Amount         decimal.Decimal
	IdempotencyKey string
}

// PaymentGateway settles the escrowed mint payment. Capture runs inside the
// collection's critical section and must not retry on its own; an error
// aborts the mint. Release undoes a capture whose mint failed to commit.
type PaymentGateway interface {
	Capture(ctx context.Context, intent PaymentIntent) error
	Release(ctx context.Context, intent PaymentIntent) error
}

// ReceiptPublisher is notified after a mint has committed.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, r *Receipt) error
}

// EscrowedPayments is the gateway used when the wallet layer has already
// moved the funds into escrow before calling Mint.
type EscrowedPayments struct{}

func (EscrowedPayments) Capture(_ context.Context, intent PaymentIntent) error {
	logrus.WithFields(logrus.Fields{
		"receipt_id":    intent.ReceiptID,
		"collection_id": intent.CollectionID,
		"amount":        intent.Amount.String(),
	}).Debug("Escrowed payment captured")
	return nil
}

func (EscrowedPayments) Release(_ context.Context, intent PaymentIntent) error {
	logrus.WithField("receipt_id", intent.ReceiptID).Warn("Escrowed payment released")
	return nil
}

type nopPublisher struct{}

func (nopPublisher) PublishReceipt(context.Context, *Receipt) error { return nil }
