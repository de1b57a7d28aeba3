package contract

import (
	"context"
	"time"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
	"github.com/starfund-labs/starfund/core/pkg/rpc"
)

// confirm polls getTransaction for hash until it reaches a terminal status,
// making exactly maxAttempts queries before giving up. Exhaustion reports
// KindTimeout, never KindOnChainFailed: the transaction may still land after
// we stop looking, and the caller must not treat ambiguity as failure.
func (c *Client) confirm(ctx context.Context, hash string, maxAttempts int) TransactionResult {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := c.ledger.GetTransaction(ctx, hash)
		if err != nil {
			return failFrom(hash, err)
		}

		switch tx.Status {
		case rpc.TxSuccess:
			return successResult(hash)
		case rpc.TxFailed:
			appErr := apperrors.OnChainFailed(tx.Status)
			return failResult(appErr.Kind, hash, appErr.Error())
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return failFrom(hash, ctx.Err())
		case <-time.After(c.confirmInterval):
		}
	}

	return failResult(apperrors.KindTimeout, hash,
		"confirmation timed out; the transaction may still complete, check the hash before retrying")
}
