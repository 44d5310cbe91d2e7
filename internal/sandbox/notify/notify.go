package notify

import (
	"context"
	"log/slog"

	"github.com/lenden-pay/lenden/internal/money"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

// Notifier delivers transaction events to downstream systems.
type Notifier interface {
	TransactionCompleted(ctx context.Context, tx store.Transaction, destinationID string)
}

// LogNotifier is a stub delivery channel that writes events to the
// structured logger. It stands in for SMS or push delivery.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// TransactionCompleted writes the event to the structured logger.
func (n *LogNotifier) TransactionCompleted(_ context.Context, tx store.Transaction, destinationID string) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Info("transaction completed",
		slog.String("transaction_id", tx.ID),
		slog.String("kind", tx.Kind),
		slog.String("amount", money.Format(tx.Amount)),
		slog.String("destination", destinationID),
	)
}
