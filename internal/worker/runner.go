package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"wallet/internal/amqp"
)

// Consumer is the subscribing half of the AMQP client.
type Consumer interface {
	ConsumeBudgetAlerts(ctx context.Context, handler func(*amqp.BudgetAlertMessage) error) error
	ConsumeTransactionSync(ctx context.Context, handler func(*amqp.TransactionSyncMessage) error) error
}

// Run consumes both queues until ctx is cancelled or a consumer fails.
// A nil worker skips its queue.
func Run(ctx context.Context, consumer Consumer, alerts *AlertWorker, syncer *SyncWorker) error {
	g, ctx := errgroup.WithContext(ctx)

	if alerts != nil {
		g.Go(func() error {
			return consumer.ConsumeBudgetAlerts(ctx, func(msg *amqp.BudgetAlertMessage) error {
				return alerts.HandleAlertMessage(ctx, msg)
			})
		})
	}
	if syncer != nil {
		g.Go(func() error {
			return consumer.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
				return syncer.HandleSyncMessage(ctx, msg)
			})
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
