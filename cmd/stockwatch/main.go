package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/retailops/checkout-api/internal/config"
	kafkax "github.com/retailops/checkout-api/internal/kafka"
	"github.com/retailops/checkout-api/internal/redisx"
	"github.com/retailops/checkout-api/internal/shop"
	"github.com/retailops/checkout-api/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	watcher := &stockwatch.Watcher{
		Redis:     rdb,
		Threshold: cfg.LowStockThreshold,
		Log:       log,
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch")
	workers := mustAtoi(os.Getenv("STOCKWATCH_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, shop.TopicStockChanged, workers, log)

	go func() {
		log.Info("stockwatch consumer started",
			zap.String("group", group), zap.String("topic", shop.TopicStockChanged), zap.Int("workers", workers))
		if err := cons.Start(ctx, watcher.HandleStockChanged); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer...")
	cancel()
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
