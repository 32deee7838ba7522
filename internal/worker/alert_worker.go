package worker

import (
	"context"
	"fmt"

	"wallet/internal/amqp"
	"wallet/internal/budget"
	"wallet/internal/notify"
)

// AlertWorker delivers alerts published by the API to the local sinks.
type AlertWorker struct {
	notifier notify.Notifier
}

func NewAlertWorker(notifier notify.Notifier) *AlertWorker {
	return &AlertWorker{notifier: notifier}
}

func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	if msg.Title == "" {
		return fmt.Errorf("alert message without title")
	}
	severity := budget.Severity(msg.Severity)
	if severity != budget.SeverityWarning {
		severity = budget.SeverityInfo
	}
	if err := w.notifier.Deliver(ctx, msg.Title, msg.Message, severity); err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	return nil
}
