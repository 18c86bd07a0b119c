package events

import "go.uber.org/zap"

// LogProducer writes events to the log instead of a broker. It is used when
// no Kafka brokers are configured.
type LogProducer struct {
	logger *zap.Logger
}

func NewLogProducer(logger *zap.Logger) *LogProducer {
	return &LogProducer{logger: logger.Named("event_log")}
}

func (p *LogProducer) Produce(event Event) error {
	p.logger.Info("event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("employee_id", event.EmployeeID),
		zap.String("week_label", event.WeekLabel),
		zap.Int64("account_id", event.Recipient.AccountID),
		zap.String("channel", event.Recipient.Channel),
		zap.String("gross", event.Gross.StringFixed(2)),
		zap.String("net", event.Net.StringFixed(2)),
	)
	return nil
}

func (p *LogProducer) Close() {}
