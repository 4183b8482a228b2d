// Package validator decides whether a submitted transaction is acceptable, and if it is,
// provisionally spends its inputs and queues it for inclusion in the next block.
package validator

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Result is the outcome of validating one transaction. Fee is only meaningful when Valid.
type Result struct {
	TxID  chainhash.Hash
	Valid bool
	Fee   uint64

	// RejectReason is the validation error when the transaction was rejected.
	RejectReason error
}

type Interface interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// Validate checks txBytes. Rejections are reported in the Result, the error is reserved for
	// failures of the node itself.
	Validate(ctx context.Context, txBytes []byte) (*Result, error)
}

// KeyRegistry reports which BitName keys are already registered.
type KeyRegistry interface {
	ExistingKeys(ctx context.Context, keys []chainhash.Hash) ([]chainhash.Hash, error)
}
