// Package notify decouples notification delivery from the financial commit
// path. Services collect events while a unit of work is open and hand them
// to a Dispatcher only after the enclosing database transaction has
// committed; a slow or failing channel can therefore never block or fail a
// ledger mutation.
package notify

import (
	"encoding/json"

	"github.com/Kennong09/budgetme-sub006/internal/logger"
)

// Event is a single notification to be delivered to the external channel.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Notifier is the external notification channel contract. Implementations
// are fire-and-forget: errors are the implementation's problem to log, not
// the caller's to handle.
type Notifier interface {
	Notify(eventType string, payload map[string]any)
}

// LogNotifier writes events to the structured log. It is the default
// channel in development and a safe fallback when no real channel is wired.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Get().Errorw("failed to marshal notification payload", "type", eventType, "error", err)
		return
	}
	logger.Get().Infow("notification", "type", eventType, "payload", string(data))
}

// Dispatcher delivers batches of events asynchronously after commit.
type Dispatcher struct {
	notifier Notifier
}

// NewDispatcher creates a Dispatcher backed by the given channel.
func NewDispatcher(notifier Notifier) *Dispatcher {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Dispatcher{notifier: notifier}
}

// Dispatch delivers the events on a separate goroutine. It must only be
// called after the transaction that produced the events has committed.
func (d *Dispatcher) Dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	go func(events []Event) {
		defer func() {
			if r := recover(); r != nil {
				logger.Get().Errorw("notification dispatch panicked", "panic", r)
			}
		}()
		for _, e := range events {
			d.notifier.Notify(e.Type, e.Payload)
		}
	}(events)
}
