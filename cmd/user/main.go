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

	"github.com/example/trading-services/internal/config"
	httpserver "github.com/example/trading-services/internal/http"
	"github.com/example/trading-services/internal/logger"
	"github.com/example/trading-services/internal/metrics"
	"github.com/example/trading-services/internal/store"
)

func main() {
	cfg, err := config.LoadUser()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logger.Must("user-service", cfg.LogLevel)
	defer logger.Sync()

	keys, users, err := store.LoadUsers(cfg.UsersPath)
	if err != nil {
		logger.Error("Failed to load user data", zap.Error(err))
		keys, users = nil, nil
	} else {
		logger.Info("User data loaded successfully", zap.Int("count", len(keys)))
	}

	s, err := httpserver.NewUserServer(keys, users, logger, httpserver.Options{
		CORSOrigin:   cfg.CORSOrigin,
		RateLimitRPS: cfg.RateLimitRPS,
		RateBurst:    cfg.RateBurst,
		Metrics:      metrics.New("user-service"),
	})
	if err != nil {
		logger.Fatal("user server", zap.Error(err))
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: s.R}
	go func() {
		logger.Info("User service starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
