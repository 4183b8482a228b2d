// Package blockassembly queues validated transactions until a BMM attempt includes them
// in a block, and reserves the BitName keys they register while they wait.
package blockassembly

import (
	"context"

	"github.com/bitnames/bitnames/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// KeyRegistry answers which BitName keys are registered on the sidechain.
type KeyRegistry interface {
	ExistingKeys(ctx context.Context, keys []chainhash.Hash) ([]chainhash.Hash, error)
}

type Store interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// AddTx queues a validated transaction. Fails with ERR_TX_ALREADY_EXISTS for a queued
	// txid and with ERR_KEY_ALREADY_EXISTS if a BitName key is reserved by another queued
	// transaction or already registered.
	AddTx(ctx context.Context, data *Data) error

	// RemoveTxs drops transactions, typically after the block including them is connected.
	RemoveTxs(ctx context.Context, txIDs []chainhash.Hash) error

	// GetBlockTemplate builds the next block from the queue, oldest transactions first.
	GetBlockTemplate(ctx context.Context) (*model.Block, error)

	// ReservedKeys returns the keys in keys that queued transactions reserve.
	ReservedKeys(keys []chainhash.Hash) []chainhash.Hash

	SetBestBlock(hash chainhash.Hash, height uint32)
	Size() int
}
