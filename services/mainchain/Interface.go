// Package mainchain talks to the drivechain enabled mainchain node that blind merge mines
// sidechain blocks.
package mainchain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Commitment is the BMM request for one sidechain block.
type Commitment struct {
	// CriticalHash is the hash of the sidechain block header.
	CriticalHash chainhash.Hash

	// Amount is the bid, in satoshis, paid to the mainchain miner that includes the commitment.
	Amount uint64

	// SideHeight is the height of the sidechain block being committed.
	SideHeight uint32
}

type Interface interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// BroadcastCommitment hands the commitment to the mainchain node, which keeps it in its
	// mempool until a miner includes it.
	BroadcastCommitment(ctx context.Context, commitment *Commitment) error

	// IsCommitmentIncluded reports whether a commitment to criticalHash is in the current
	// mainchain tip.
	IsCommitmentIncluded(ctx context.Context, criticalHash chainhash.Hash) (bool, error)
}
