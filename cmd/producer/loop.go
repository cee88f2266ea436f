package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/trading-services/internal/config"
	"github.com/example/trading-services/internal/seed"
)

func runProducerLoop(ctx context.Context, cfg config.Producer, gen *seed.Generator, w *kafka.Writer, logger *zap.Logger) {
	period := time.Second / time.Duration(cfg.Rate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				logger.Info("producer: TTL reached; exiting")
			} else {
				logger.Info("producer: shutting down (signal)")
			}
			return
		case <-ticker.C:
			req := gen.Transfer(cfg.SeedCount)
			b, err := json.Marshal(req)
			if err != nil {
				logger.Error("marshal error", zap.Error(err))
				continue
			}

			msg := kafka.Message{Key: []byte(req.RecordID), Value: b, Time: time.Now().UTC()}
			if err := w.WriteMessages(ctx, msg); err != nil {
				logger.Warn("write error", zap.Error(err))
				continue
			}
			logger.Debug("sent transfer request",
				zap.String("record_id", req.RecordID),
				zap.String("from", req.FromOwner),
				zap.String("to", req.ToOwner),
			)
		}
	}
}
