package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hartanto/go-cafe-orders/internal/config"
	"github.com/hartanto/go-cafe-orders/internal/httpx"
	kafkax "github.com/hartanto/go-cafe-orders/internal/kafka"
	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/postgres"
	"github.com/hartanto/go-cafe-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prod.Start(ctx)

	// Store, service & handlers
	store := postgres.NewStore(db, cfg.LockTimeout)
	svc := &orders.Service{
		Store:         store,
		InvoicePrefix: cfg.InvoicePrefix,
		ConsentSecret: cfg.ConsentSecret,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Orders:   svc,
		Reads:    store,
		Redis:    rdb,
		Producer: prod,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)
	ch := &httpx.CatalogHandler{DB: store}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // stop intake -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
