package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"niftacore/internal/events"
	"niftacore/internal/ledger"
	"niftacore/internal/mint"
	"niftacore/pkg/config"
	"niftacore/schedule"

	"github.com/shopspring/decimal"
	logrus "github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	price, err := decimal.NewFromString(cfg.DefaultPriceWei)
	if err != nil {
		logrus.Fatalf("Invalid DEFAULT_PRICE_WEI %q: %v", cfg.DefaultPriceWei, err)
	}
	svc, err := mint.NewService(ledger.NewGormStore(db), mint.Config{
		PlatformTreasury:        cfg.PlatformTreasury,
		DefaultPriceWei:         price,
		DefaultTriggerThreshold: cfg.DefaultTrigger,
	})
	if err != nil {
		logrus.Fatalf("Failed to create mint service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper, err := schedule.NewExpirySweeper(svc, cfg.SweepSpec)
	if err != nil {
		logrus.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	if _, err := sweeper.RunOnce(ctx); err != nil {
		logrus.Errorf("Initial expiry sweep failed: %v", err)
	}
	sweeper.Start()
	logrus.Infof("Expiry sweep scheduled with spec %q", cfg.SweepSpec)

	if url := cfg.RabbitMQURL(); url != "" {
		if err := config.InitRabbitMQ(url); err != nil {
			logrus.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer config.RabbitMQ.Close()

		consumer, err := config.NewConsumer(config.RabbitMQ, cfg.MintEventsQueue)
		if err != nil {
			logrus.Fatalf("Failed to create consumer: %v", err)
		}
		defer consumer.Close()

		go func() {
			logrus.Infof("Consuming mint events from %s", cfg.MintEventsQueue)
			if err := consumer.Consume(ctx, handleMintEvent); err != nil && !errors.Is(err, context.Canceled) {
				logrus.Errorf("Mint event consumer stopped: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logrus.Info("Worker shutting down")
	<-sweeper.Stop().Done()
}

// handleMintEvent records committed mints in the worker log stream.
func handleMintEvent(msg []byte) error {
	var ev events.MintEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		// malformed messages would be redelivered forever
		logrus.Errorf("Failed to unmarshal mint event: %v", err)
		return nil
	}
	if ev.Receipt == nil {
		return nil
	}

	r := ev.Receipt
	fields := logrus.Fields{
		"type":          ev.Type,
		"receipt_id":    r.ID,
		"collection_id": r.CollectionID,
		"minter":        r.Minter,
		"start_index":   r.StartIndex,
		"quantity":      r.Quantity,
		"payment":       r.Payment.String(),
		"phase":         r.Phase,
		"creator": logrus.Fields{
			"address": r.Payouts.Creator.Address,
			"amount":  r.Payouts.Creator.Amount.String(),
		},
		"first_minter": logrus.Fields{
			"address": r.Payouts.FirstMinter.Address,
			"amount":  r.Payouts.FirstMinter.Amount.String(),
		},
		"platform": logrus.Fields{
			"address": r.Payouts.Platform.Address,
			"amount":  r.Payouts.Platform.Amount.String(),
		},
	}
	if !r.Payouts.ReferralRedirected {
		fields["referral"] = logrus.Fields{
			"address": r.Payouts.Referral.Address,
			"amount":  r.Payouts.Referral.Amount.String(),
		}
	}
	logrus.WithFields(fields).Info("Mint event received")
	return nil
}
