// Package worker consumes wallet messages and mirrors transactions out of process.
package worker

import (
	"context"
	"errors"
	"fmt"

	"wallet/internal/amqp"
	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/sheets"
	"wallet/internal/store"
)

// SyncSource is the durable store side of the mirror: it tracks which
// transactions still need copying.
type SyncSource interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	PendingSync(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker copies stored transactions to the spreadsheet mirror.
type SyncWorker struct {
	source    SyncSource
	mirror    sheets.Mirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(source SyncSource, mirror sheets.Mirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// A transaction deleted before the message arrived is acknowledged and skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.DebugContext(ctx, "Processing sync message", log.FieldTxID, msg.ID)

	tx, err := w.source.GetTransaction(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.InfoContext(ctx, "Transaction no longer exists, skipping sync", log.FieldTxID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.syncTransaction(ctx, tx)
}

// SyncPending mirrors up to limit transactions still marked pending and
// returns how many were synced. It backs up lost AMQP messages.
func (w *SyncWorker) SyncPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = w.batchSize
	}
	pending, err := w.source.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}

	synced := 0
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.syncTransaction(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction", log.FieldTxID, tx.ID, log.FieldError, err.Error())
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck syncs a larger batch of pending rows when the worker starts,
// to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.SyncPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, tx core.Transaction) error {
	exists, err := w.mirror.Contains(ctx, tx)
	if err != nil {
		w.logger.WarnContext(ctx, "Could not check mirror for duplicates", log.FieldTxID, tx.ID, log.FieldError, err.Error())
	}
	if exists {
		w.logger.InfoContext(ctx, "Transaction already mirrored", log.FieldTxID, tx.ID)
		w.markSynced(ctx, tx.ID)
		return nil
	}

	ref, err := w.mirror.Append(ctx, tx)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, tx.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldTxID, tx.ID, log.FieldError, markErr.Error())
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.markSynced(ctx, tx.ID)
	w.logger.InfoContext(ctx, "Synced transaction",
		log.FieldTxID, tx.ID,
		log.FieldSheetsRef, ref,
		log.FieldTxKind, string(tx.Kind),
		log.FieldAmount, tx.Amount.String())
	return nil
}

// markSynced logs instead of failing: the row is already in the sheet.
func (w *SyncWorker) markSynced(ctx context.Context, id string) {
	if err := w.source.MarkSynced(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldTxID, id, log.FieldError, err.Error())
	}
}
