package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gwhitt/roundbook/internal/config"
	"github.com/gwhitt/roundbook/internal/db"
	"github.com/gwhitt/roundbook/internal/kafka"
	"github.com/gwhitt/roundbook/internal/messenger"
	"github.com/gwhitt/roundbook/internal/metrics"
	"github.com/gwhitt/roundbook/internal/repository"
	"github.com/gwhitt/roundbook/internal/service/notify"
	"github.com/gwhitt/roundbook/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Run the payment notice delivery worker",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connections
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer func() { _ = chDB.Close() }()

	// 3) repositories
	notificationsRepo := repository.NewNotificationsRepository(dbx)
	historyRepo := repository.NewHistoryRepository(chDB)

	// 4) messengers → dispatcher
	var provs []messenger.Provider
	for _, mc := range cfg.Messengers {
		if !mc.Enabled || strings.TrimSpace(mc.BaseURL) == "" {
			continue
		}
		provs = append(provs,
			messenger.NewHTTPProvider(
				mc.Name,
				strings.TrimRight(mc.BaseURL, "/"),
				mc.SendPath,
				mc.TimeoutMs,
				mc.Breaker.FailThreshold,
				mc.Breaker.OpenForMs,
			),
		)
	}
	if len(provs) == 0 {
		return fmt.Errorf("no messengers enabled in config")
	}
	disp := messenger.NewDispatcher(provs, cfg.Notifier.MaxRetryAttempts)

	// 5) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "roundbook-notifier"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          notify.PaymentNoticeTopic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewNotifier(dbx, consumer, notificationsRepo, historyRepo, disp)

	// tune knobs
	if cfg.Notifier.WorkerCount > 0 {
		w.Workers = cfg.Notifier.WorkerCount
	}
	if cfg.Notifier.BatchSize > 0 {
		w.BatchSize = cfg.Notifier.BatchSize
	}
	if cfg.Notifier.BatchWait > 0 {
		w.BatchWait = cfg.Notifier.BatchWait
	}

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> notifier started topic=%s group=%s workers=%d batchSize=%d batchWait=%s",
		notify.PaymentNoticeTopic, groupID, w.Workers, w.BatchSize, w.BatchWait)

	return w.Run(ctx)
}
