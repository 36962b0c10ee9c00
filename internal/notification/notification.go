// Package notification carries best-effort customer notices raised by money
// movements. Delivery failures never affect the movement itself.
package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindTransferReceived is sent to the receiver of a settled transfer.
	KindTransferReceived = "transfer_received"
	// KindBillSettled is sent when a bill ends PAID or CANCELED.
	KindBillSettled = "bill_settled"
)

// Message describes a notification payload.
type Message struct {
	Kind       string
	CustomerID string
	Body       string
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
	n.logger.Info("notification", "kind", message.Kind, "customer_id", message.CustomerID, "body", message.Body)
	return nil
}

// Recorder keeps every message in memory. Useful for tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
