package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/trading-services/internal/config"
	"github.com/example/trading-services/internal/logger"
	"github.com/example/trading-services/internal/seed"
	"github.com/example/trading-services/internal/store"
)

func main() {
	// Base context canceled by SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:          "producer",
		Short:        "Generate stock documents and transfer traffic",
		SilenceUsage: true,
	}
	root.AddCommand(seedCommand(), publishCommand())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func seedCommand() *cobra.Command {
	var seedValue int64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a generated stocks document to SEED_OUTPUT",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg config.Producer
			if err := config.Load(&cfg); err != nil {
				return err
			}
			if seedValue == 0 {
				seedValue = time.Now().UnixNano()
			}
			stocks := seed.New(seedValue, cfg.Users).Stocks(cfg.SeedCount)
			if err := store.NewFileSink(cfg.SeedOutput).Save(cmd.Context(), stocks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d stocks to %s\n", len(stocks), cfg.SeedOutput)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed (0 = time based)")
	return cmd
}

func publishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish random transfer requests to KAFKA_REQUESTS_TOPIC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadProducer()
			if err != nil {
				return err
			}
			log := logger.Must("producer", "info")
			defer log.Sync()

			// Apply TTL unless stay-alive requested or TTL <= 0
			ctx := cmd.Context()
			if !cfg.StayAlive && cfg.TTL > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.TTL)
				defer cancel()
			}

			if cfg.EnsureTopic {
				c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				EnsureTopic(c, cfg.KafkaBrokers[0], cfg.Topic, log)
				cancel()
			}

			writer := NewKafkaWriter(cfg.KafkaBrokers, cfg.Topic)
			defer func() {
				if err := writer.Close(); err != nil {
					log.Warn("producer: writer close error", zap.Error(err))
				}
			}()

			log.Info("producer starting",
				zap.Strings("brokers", cfg.KafkaBrokers),
				zap.String("topic", cfg.Topic),
				zap.Int("rate", cfg.Rate),
				zap.Bool("stay_alive", cfg.StayAlive),
				zap.Duration("ttl", cfg.TTL),
			)
			runProducerLoop(ctx, cfg, seed.New(time.Now().UnixNano(), cfg.Users), writer, log)
			return nil
		},
	}
}
