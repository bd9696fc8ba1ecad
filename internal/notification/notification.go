package notification

import (
	"context"
	"log/slog"
)

const (
	// KindDonationReceived is sent to a streamer when a donation confirms.
	KindDonationReceived = "donation_received"
	// KindDonationFailed is sent to the donor when an attempt fails.
	KindDonationFailed = "donation_failed"
	// KindWithdrawal is sent when a streamer withdrawal confirms.
	KindWithdrawal = "withdrawal"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
	TxHash      string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	}
	if message.TxHash != "" {
		attrs = append(attrs, slog.String("tx_hash", message.TxHash))
	}
	n.logger.Info("notification", attrs...)
	return nil
}
