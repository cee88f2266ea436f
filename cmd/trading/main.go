package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/trading-services/internal/cache"
	"github.com/example/trading-services/internal/config"
	"github.com/example/trading-services/internal/domain"
	httpserver "github.com/example/trading-services/internal/http"
	kafkaio "github.com/example/trading-services/internal/kafka"
	"github.com/example/trading-services/internal/logger"
	"github.com/example/trading-services/internal/metrics"
	"github.com/example/trading-services/internal/store"
	"github.com/example/trading-services/internal/transfer"
)

type persistence interface {
	store.Source
	store.Sink
}

func main() {
	cfg, err := config.LoadTrading()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logger.Must("trading-service", cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, ok := domain.ParseStoreBackend(cfg.StoreBackend)
	if !ok {
		logger.Fatal("config", zap.String("store_backend", cfg.StoreBackend))
	}

	var sink persistence
	switch backend {
	case domain.BackendPostgres:
		dbpool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db", zap.Error(err))
		}
		defer dbpool.Close()
		pg := store.NewPostgresSink(dbpool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		sink = pg
	default:
		sink = store.NewFileSink(cfg.StocksPath)
	}
	st := store.Load(ctx, sink, logger)

	m := metrics.New("trading-service")
	statsCache, err := cache.New(1<<26 /* ~64MB */, cfg.CacheTTL)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer statsCache.Close()

	opts := []transfer.Option{transfer.WithMetrics(m)}
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaio.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic, logger)
		defer pub.Close()
		opts = append(opts, transfer.WithPublisher(pub))
	}

	var s *httpserver.Server
	opts = append(opts, transfer.OnChange(func() { s.InvalidateCaches() }))
	engine := transfer.New(st, sink, logger, opts...)

	s = httpserver.NewServer(st, engine, statsCache, logger, httpserver.Options{
		CORSOrigin:   cfg.CORSOrigin,
		RateLimitRPS: cfg.RateLimitRPS,
		RateBurst:    cfg.RateBurst,
		Metrics:      m,
	})

	if cfg.KafkaRequestsTopic != "" {
		cons := kafkaio.NewConsumer(cfg.KafkaBrokers, cfg.KafkaRequestsTopic, cfg.KafkaGroupID, engine, logger)
		go func() {
			if err := cons.Run(ctx); err != nil {
				logger.Error("consumer", zap.Error(err))
			}
		}()
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: s.R}
	go func() {
		logger.Info("Trading service starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
