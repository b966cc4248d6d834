package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/retailops/checkout-api/internal/checkout"
	"github.com/retailops/checkout-api/internal/config"
	"github.com/retailops/checkout-api/internal/httpx"
	kafkax "github.com/retailops/checkout-api/internal/kafka"
	"github.com/retailops/checkout-api/internal/postgres"
	"github.com/retailops/checkout-api/internal/redisx"
	"github.com/retailops/checkout-api/internal/shop"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pStock := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicStockChanged, 1024, log)
	pStock.Start(ctx)
	pIssued := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicInvoiceIssued, 1024, log)
	pIssued.Start(ctx)
	pAmended := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicInvoiceAmended, 1024, log)
	pAmended.Start(ctx)

	// Repos & orchestrator
	svc := &checkout.Service{
		Ledger:         &shop.Ledger{DB: db},
		Carts:          &shop.CartRepo{DB: db},
		Invoices:       &shop.InvoiceRepo{DB: db},
		StockEvents:    pStock,
		InvoiceIssued:  pIssued,
		InvoiceAmended: pAmended,
		ServiceName:    cfg.ServiceName,
		Log:            log,
	}

	// HTTP
	auth := &httpx.Auth{Secret: []byte(cfg.JWTSecret), Log: log}
	router := httpx.NewRouter()
	(&httpx.CartHandler{Service: svc, Redis: rdb, Log: log}).Register(router, auth)
	(&httpx.InvoiceHandler{Service: svc, Redis: rdb, Log: log}).Register(router, auth)
	(&httpx.ProductHandler{Repo: &shop.ProductRepo{DB: db}, Redis: rdb, Threshold: cfg.LowStockThreshold, Log: log}).Register(router, auth)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pStock, pIssued, pAmended} {
		p.Close() // close inbox -> flush & close writer
	}
	cancel()
	for _, p := range []*kafkax.Producer{pStock, pIssued, pAmended} {
		p.WaitClosed()
	}
}
