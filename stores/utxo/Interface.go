// Package utxo defines the UTXO index: unspent outputs by outpoint and by owning address,
// provisional spend marking and the BitName key registry.
//
// # Spend semantics
//
// Spend marks every outpoint as spent by spendingTxID, or none of them. A provisionally
// spent output stays in the store until the block that confirms the spend is connected,
// at which point it is deleted. Provisionally spent outputs are not returned by address
// lookups.
package utxo

import (
	"context"

	"github.com/bitnames/bitnames/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Response is the result of a Get. SpendingTxID is nil for an unspent output.
type Response struct {
	Utxo         *model.Utxo
	SpendingTxID *chainhash.Hash
}

func (r *Response) IsSpent() bool {
	return r.SpendingTxID != nil
}

type Store interface {
	// Health reports the http status of the store.
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// Create adds the outputs of tx as unspent outputs. Fails with ERR_TX_ALREADY_EXISTS if
	// any of them is already present.
	Create(ctx context.Context, tx *model.Transaction, blockHeight uint32) ([]*model.Utxo, error)

	// Get fails with ERR_TX_NOT_FOUND if the outpoint is unknown.
	Get(ctx context.Context, outpoint model.OutPoint) (*Response, error)

	// Spend fails with ERR_TX_NOT_FOUND or ERR_UTXO_SPENT, leaving every outpoint untouched.
	Spend(ctx context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error

	// UnSpend reverses a Spend by spendingTxID. Outpoints spent by another transaction are left alone.
	UnSpend(ctx context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error

	// Delete removes outpoints whose spend has been confirmed. Unknown outpoints are ignored.
	Delete(ctx context.Context, outpoints []model.OutPoint) error

	// GetByAddresses returns the unspent outputs owned by addresses, grouped by address in
	// request order and sorted by outpoint within each address.
	GetByAddresses(ctx context.Context, addresses []model.Address) ([]*model.Utxo, error)

	// GetBitNames returns the registered values of the keys that exist.
	GetBitNames(ctx context.Context, keys []chainhash.Hash) (map[chainhash.Hash]chainhash.Hash, error)

	// ListBitNames returns the whole registry.
	ListBitNames(ctx context.Context) ([]model.BitName, error)

	// ListBitNamesPage returns at most limit names in key byte order, skipping offset, and the
	// size of the registry.
	ListBitNamesPage(ctx context.Context, offset, limit int) ([]model.BitName, int, error)

	// SetBitNames registers names. Fails with ERR_KEY_ALREADY_EXISTS, registering none, if any key exists.
	SetBitNames(ctx context.Context, names []model.BitName) error

	// ConnectBlock applies block as one unit: the inputs of every transaction are deleted,
	// their outputs created and their BitNames registered, and block becomes the best block.
	// Fails with ERR_TX_ALREADY_EXISTS or ERR_KEY_ALREADY_EXISTS leaving the store untouched.
	ConnectBlock(ctx context.Context, block *model.Block) error

	// GetBestBlock returns the hash and height of the last connected block, zero values on a
	// fresh store.
	GetBestBlock(ctx context.Context) (chainhash.Hash, uint32, error)

	SetBestBlock(ctx context.Context, hash chainhash.Hash, height uint32) error
}
