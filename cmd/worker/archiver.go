package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/db"
	"github.com/omnidesk/inbox-gateway/internal/kafka"
	"github.com/omnidesk/inbox-gateway/internal/logger"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var archiverCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Run the event archiver (Kafka -> ClickHouse)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

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

		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = repository.EventsTopic
		}
		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "inboxgw-archiver"
		}

		consumer := kafka.NewConsumerFromConfig(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		arch := worker.NewArchiver(consumer, repository.NewCHEventsRepository(chDB), logger.Log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("archiver started",
			zap.String("topic", topic),
			zap.String("group", groupID),
		)

		return arch.Run(ctx)
	},
}
