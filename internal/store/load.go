package store

import (
	"context"

	"go.uber.org/zap"
)

// Load builds a Store from src. A failed load is logged and yields an empty
// store so the service still comes up.
func Load(ctx context.Context, src Source, logger *zap.Logger) *Store {
	stocks, err := src.Load(ctx)
	if err != nil {
		logger.Error("Failed to load stocks data", zap.Error(err))
		return New(nil)
	}
	s := New(stocks)
	logger.Info("Stocks data loaded successfully", zap.Int("count", s.Len()))
	return s
}
