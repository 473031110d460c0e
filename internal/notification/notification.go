package notification

import (
	"context"
	"errors"
	"log/slog"
)

const (
	// KindSecurityAlert indicates a newly raised security alert.
	KindSecurityAlert = "security_alert"
	// KindAlertResolved indicates an alert was resolved by an operator.
	KindAlertResolved = "security_alert_resolved"
	// KindTransferCompleted indicates funds landed in a destination wallet.
	KindTransferCompleted = "transfer_completed"
	// KindTransactionReversed indicates a movement was offset by a reversal.
	KindTransactionReversed = "transaction_reversed"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
	// Attributes carries structured detail such as alert id and severity.
	Attributes map[string]string `json:"attributes,omitempty"`
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
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{"kind", message.Kind, "destination", message.Destination, "body", message.Body}
	for k, v := range message.Attributes {
		attrs = append(attrs, k, v)
	}
	n.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}

// Multi fans a message out to every notifier and joins their failures.
type Multi []Notifier

// Send delivers message to all notifiers, even when some fail.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
