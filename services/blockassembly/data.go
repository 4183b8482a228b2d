package blockassembly

import (
	"github.com/bitnames/bitnames/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Data is a validated transaction waiting for inclusion.
type Data struct {
	Tx   *model.Transaction
	TxID chainhash.Hash
	Fee  uint64
	Size uint64
}

func NewData(tx *model.Transaction, fee uint64) *Data {
	txBytes := tx.Bytes()

	return &Data{
		Tx:   tx,
		TxID: chainhash.DoubleHashH(txBytes),
		Fee:  fee,
		Size: uint64(len(txBytes)),
	}
}
