package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/db"
	"github.com/omnidesk/inbox-gateway/internal/kafka"
	"github.com/omnidesk/inbox-gateway/internal/logger"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the outbox relay (MySQL outbox -> Kafka)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

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

		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = repository.EventsTopic
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, topic)
		defer producer.Close()

		relay := worker.NewRelay(repository.NewOutboxRepository(dbx), producer, logger.Log)
		if cfg.Relay.BatchSize > 0 {
			relay.BatchSize = cfg.Relay.BatchSize
		}
		if cfg.Relay.Interval > 0 {
			relay.Interval = cfg.Relay.Interval
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("relay started",
			zap.String("topic", topic),
			zap.Int("batch_size", relay.BatchSize),
			zap.Duration("interval", relay.Interval),
		)

		return relay.Run(ctx)
	},
}
