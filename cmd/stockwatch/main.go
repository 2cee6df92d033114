package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hartanto/go-cafe-orders/internal/config"
	kafkax "github.com/hartanto/go-cafe-orders/internal/kafka"
	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/postgres"
	"github.com/hartanto/go-cafe-orders/internal/redisx"
	"github.com/hartanto/go-cafe-orders/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName+"-stockwatch").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for stock.low
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockLow, 1024)
	prod.Start(ctx)

	svc := &stockwatch.Service{
		Reader:      postgres.NewStore(db, cfg.LockTimeout),
		Redis:       rdb,
		Producer:    prod,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: cfg.ServiceName + "-stockwatch",
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch-svc")
	workers := mustAtoi(os.Getenv("STOCKWATCH_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers)

	go func() {
		log.Info().Str("group", group).Str("topic", orders.TopicOrderCreated).Int("workers", workers).Msg("consumer started")
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
