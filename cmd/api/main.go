package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"niftacore/internal/events"
	"niftacore/internal/handlers"
	"niftacore/internal/ledger"
	"niftacore/internal/middleware"
	"niftacore/internal/mint"
	"niftacore/internal/routes"
	"niftacore/pkg/config"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open ledger store: %v", err)
	}

	hub := events.NewHub(cfg.AllowedOrigins)
	defer hub.Close()
	publishers := events.Fanout{hub}

	// RabbitMQ is optional; without it the live feed is websocket only
	if url := cfg.RabbitMQURL(); url != "" {
		if err := config.InitRabbitMQ(url); err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer config.RabbitMQ.Close()

		queue, err := config.NewPublisher(config.RabbitMQ, cfg.MintEventsQueue)
		if err != nil {
			log.Fatalf("Failed to create publisher: %v", err)
		}
		defer queue.Close()
		publishers = append(publishers, events.NewAMQPPublisher(queue))
		log.Infof("Publishing mint events to queue %s", cfg.MintEventsQueue)
	} else {
		log.Info("RabbitMQ not configured, skipping initialization")
	}

	price, err := decimal.NewFromString(cfg.DefaultPriceWei)
	if err != nil {
		log.Fatalf("Invalid DEFAULT_PRICE_WEI %q: %v", cfg.DefaultPriceWei, err)
	}
	svc, err := mint.NewService(store, mint.Config{
		PlatformTreasury:        cfg.PlatformTreasury,
		DefaultPriceWei:         price,
		DefaultTriggerThreshold: cfg.DefaultTrigger,
	}, mint.WithPublisher(publishers))
	if err != nil {
		log.Fatalf("Failed to create mint service: %v", err)
	}

	r := routes.SetupRouter(handlers.New(svc, hub), routes.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
}

func openStore(cfg *config.AppConfig) (ledger.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("Using in-memory ledger store; balances are lost on restart")
		return ledger.NewMemoryStore(), nil
	case "postgres", "":
		db, err := config.InitDB(cfg)
		if err != nil {
			return nil, err
		}
		return ledger.NewGormStore(db), nil
	default:
		return nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
}
