// This is a **mock notification relay**. It reads the payroll notification
// topic and logs every event per recipient, standing in for the mail/SMS
// delivery service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/siteledger/internal/payroll/config"
	"github.com/gartstein/siteledger/internal/payroll/events"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	groupID := flag.String("group", "payroll-notifier", "Kafka consumer group")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}

	consumer, err := events.NewConsumer(cfg.KafkaBrokers, cfg.Topic, *groupID, logger)
	if err != nil {
		logger.Fatal("failed to initialize Kafka consumer", zap.Error(err))
	}
	consumer.RegisterHandler(deliver(logger.Named("delivery")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier started", zap.String("topic", cfg.Topic), zap.String("group", *groupID))
	consumer.Start(ctx)
	<-ctx.Done()
	consumer.Close()
	logger.Info("notifier stopped")
}

func deliver(logger *zap.Logger) events.Handler {
	return func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("employee_id", event.EmployeeID),
			zap.String("week_label", event.WeekLabel),
			zap.String("gross", event.Gross.StringFixed(2)),
			zap.String("net", event.Net.StringFixed(2)),
		}
		switch {
		case event.Recipient.Email != "":
			fields = append(fields, zap.String("email", event.Recipient.Email))
		case event.Recipient.Channel != "":
			fields = append(fields, zap.String("channel", event.Recipient.Channel))
		default:
			fields = append(fields, zap.Int64("account_id", event.Recipient.AccountID))
		}
		logger.Info("notification delivered", fields...)
		return nil
	}
}
