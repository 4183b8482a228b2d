package model

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// OutPoint references output Vout of transaction TxID.
type OutPoint struct {
	_    struct{} `cbor:",toarray"`
	TxID chainhash.Hash
	Vout uint32
}

func NewOutPoint(txID chainhash.Hash, vout uint32) OutPoint {
	return OutPoint{TxID: txID, Vout: vout}
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Vout)
}
