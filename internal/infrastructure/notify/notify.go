// Package notify combines notification channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

// Named is a channel with a label for logs and errors.
type Named struct {
	Name     string
	Notifier ports.Notifier
}

// Fanout delivers every message to all channels.
type Fanout struct {
	channels []Named
}

var _ ports.Notifier = (*Fanout)(nil)

// NewFanout skips nil notifiers.
func NewFanout(channels ...Named) *Fanout {
	kept := make([]Named, 0, len(channels))
	for _, ch := range channels {
		if ch.Notifier != nil {
			kept = append(kept, ch)
		}
	}
	return &Fanout{channels: kept}
}

// Len returns the number of channels.
func (f *Fanout) Len() int {
	return len(f.channels)
}

// Deliver tries every channel and joins the failures.
func (f *Fanout) Deliver(ctx context.Context, msg domain.Message) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Notifier.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Log writes messages to the logger; used when no channel is configured.
type Log struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Log)(nil)

func NewLog(log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{logger: log}
}

func (l *Log) Deliver(_ context.Context, msg domain.Message) error {
	l.logger.Info("notification", "recipient", msg.Recipient, "subject", msg.Subject, "text", msg.Text)
	return nil
}
