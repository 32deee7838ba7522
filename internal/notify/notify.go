// Package notify delivers budget alerts to the user-facing sinks.
package notify

import (
	"context"
	"errors"
	"fmt"

	"wallet/internal/budget"
	"wallet/internal/log"
)

// Notifier delivers a titled message. Implementations may fail; callers that
// must not be interrupted wrap them with Safe.
type Notifier interface {
	Deliver(ctx context.Context, title, message string, severity budget.Severity) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, title, message string, severity budget.Severity) error

func (f Func) Deliver(ctx context.Context, title, message string, severity budget.Severity) error {
	return f(ctx, title, message, severity)
}

// LogNotifier writes alerts to the structured log. Warnings go out at WARN.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) Deliver(ctx context.Context, title, message string, severity budget.Severity) error {
	args := []any{log.FieldAlertTitle, title, log.FieldSeverity, string(severity), "message", message}
	if severity == budget.SeverityWarning {
		n.logger.WarnContext(ctx, "Budget notification", args...)
	} else {
		n.logger.InfoContext(ctx, "Budget notification", args...)
	}
	return nil
}

// AlertPublisher is the slice of the AMQP client the notifier needs.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, title, message, severity string) error
}

// AMQPNotifier hands alerts to the worker through the message broker.
type AMQPNotifier struct {
	publisher AlertPublisher
}

func NewAMQPNotifier(publisher AlertPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) Deliver(ctx context.Context, title, message string, severity budget.Severity) error {
	if err := n.publisher.PublishBudgetAlert(ctx, title, message, string(severity)); err != nil {
		return fmt.Errorf("publish budget alert: %w", err)
	}
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Deliver(ctx context.Context, title, message string, severity budget.Severity) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Deliver(ctx, title, message, severity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Safe wraps a notifier so that errors and panics are logged and swallowed.
type Safe struct {
	next   Notifier
	logger *log.Logger
}

func NewSafe(next Notifier, logger *log.Logger) *Safe {
	return &Safe{next: next, logger: logger.WithComponent(log.ComponentNotify)}
}

// Deliver always returns nil.
func (s *Safe) Deliver(ctx context.Context, title, message string, severity budget.Severity) (err error) {
	if s.next == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Notifier panicked",
				log.FieldAlertTitle, title,
				log.FieldError, fmt.Sprint(r),
				log.FieldOperation, log.OpNotify)
			err = nil
		}
	}()

	if derr := s.next.Deliver(ctx, title, message, severity); derr != nil {
		s.logger.WarnContext(ctx, "Notification delivery failed",
			log.FieldAlertTitle, title,
			log.FieldError, derr.Error(),
			log.FieldOperation, log.OpNotify)
	}
	return nil
}
