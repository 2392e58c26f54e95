package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-gateway/pkg/api"
	"payment-gateway/pkg/config"
	"payment-gateway/pkg/ledger"
	"payment-gateway/pkg/ledger/memory"
	"payment-gateway/pkg/ledger/postgres"
	ledgerredis "payment-gateway/pkg/ledger/redis"
	"payment-gateway/pkg/logging"
	"payment-gateway/pkg/mailer"
	promMetrics "payment-gateway/pkg/metrics/prometheus"
	"payment-gateway/pkg/payments"
	"payment-gateway/pkg/truemoney"
	"payment-gateway/web"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "gateway.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logger.Info("starting payment gateway")

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("ledger store ready", zap.String("backend", cfg.Store.Backend))

	collector := promMetrics.NewPrometheusCollector("gateway")
	prometheus.MustRegister(collector)

	var outbox *mailer.Outbox
	if cfg.SMTP.Enabled {
		sender := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		outbox = mailer.NewOutbox(sender, mailer.OutboxConfig{
			QueueSize: cfg.Outbox.QueueSize,
			Workers:   cfg.Outbox.Workers,
		}, collector)
		defer outbox.Close()
		logger.Info("receipt outbox ready", zap.Int("workers", cfg.Outbox.Workers))
	} else {
		logger.Warn("SMTP disabled, receipts will not be sent")
	}

	tmConfig := truemoney.DefaultClientConfig()
	tmConfig.Endpoint = cfg.TrueMoney.Endpoint
	if cfg.TrueMoney.TimeoutSeconds > 0 {
		tmConfig.Timeout = time.Duration(cfg.TrueMoney.TimeoutSeconds) * time.Second
	}
	redeemer := truemoney.NewClient(tmConfig)

	var notifier payments.Notifier
	if outbox != nil {
		notifier = outbox
	}

	service, err := payments.NewService(store, redeemer, notifier, payments.Config{
		PayoutID:        cfg.Payments.PayoutID,
		DefaultMerchant: cfg.Payments.DefaultMerchant,
	}, collector)
	if err != nil {
		logger.Fatal("failed to create payment service", zap.Error(err))
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Address = cfg.Server.Address
	server := api.NewServer(service, outbox, web.Static(), serverConfig)
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func openStore(cfg config.Config) (ledger.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		redisConfig := ledgerredis.DefaultConfig()
		redisConfig.Addr = cfg.Store.Redis.Addr
		redisConfig.Password = cfg.Store.Redis.Password
		redisConfig.DB = cfg.Store.Redis.DB
		return ledgerredis.NewRedisStore(redisConfig)
	case "postgres":
		return postgres.NewPostgresStore(postgres.Config{
			Host:     cfg.Store.Postgres.Host,
			Port:     cfg.Store.Postgres.Port,
			User:     cfg.Store.Postgres.User,
			Password: cfg.Store.Postgres.Password,
			Database: cfg.Store.Postgres.Database,
			SSLMode:  cfg.Store.Postgres.SSLMode,
		})
	default:
		return memory.NewMemoryStore(), nil
	}
}
