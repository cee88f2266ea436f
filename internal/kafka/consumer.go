package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/trading-services/internal/models"
	"github.com/example/trading-services/internal/transfer"
)

// Transferer applies one ownership transfer.
type Transferer interface {
	Transfer(ctx context.Context, req models.TransferRequest) (transfer.Result, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer applies transfer requests read from a topic. Rejected requests are
// logged and skipped; the consumer only stops when the context ends or the
// reader fails.
type Consumer struct {
	Reader messageReader
	Engine Transferer
	Logger *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, engine Transferer, logger *zap.Logger) *Consumer {
	return &Consumer{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
			MaxWait:  500 * time.Millisecond,
		}),
		Engine: engine,
		Logger: logger,
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.Reader.Close()
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		var req models.TransferRequest
		if err := json.Unmarshal(m.Value, &req); err != nil {
			c.Logger.Warn("bad message", zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		if _, err := c.Engine.Transfer(ctx, req); err != nil {
			c.Logger.Warn("transfer request rejected",
				zap.String("record_id", req.RecordID),
				zap.String("outcome", transfer.Outcome(err)),
				zap.Error(err),
			)
		} else {
			c.Logger.Debug("transfer request applied", zap.String("record_id", req.RecordID))
		}
	}
}
