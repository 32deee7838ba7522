// Package sheets defines the spreadsheet mirror that transactions are copied to.
package sheets

import (
	"context"

	"wallet/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionAppender interface {
		// Append writes tx as a new row and returns a reference to it.
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionIndex answers whether a transaction was already mirrored,
	// so redelivered sync messages do not create duplicate rows.
	TransactionIndex interface {
		Contains(ctx context.Context, tx core.Transaction) (bool, error)
	}

	Mirror interface {
		TransactionAppender
		TransactionIndex
	}
)
