package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// NewTestAddress returns a deterministic address derived from seed, for use in tests.
func NewTestAddress(seed byte) Address {
	var a Address
	for i := range a {
		a[i] = seed
	}

	return a
}

// NewTestFundingTransaction returns a transaction whose outputs pay values to addr. Its
// single input references a made up outpoint, so it is only useful as a block body
// transaction or as the source of test UTXOs.
func NewTestFundingTransaction(seed byte, addr Address, values ...uint64) *Transaction {
	tx := &Transaction{
		Inputs: []OutPoint{NewOutPoint(chainhash.HashH([]byte{seed}), 0)},
	}

	for _, value := range values {
		tx.Outputs = append(tx.Outputs, NewValueOutput(addr, value))
	}

	return tx
}

// NewTestSpendingTransaction spends inputs and pays values to addr.
func NewTestSpendingTransaction(inputs []OutPoint, addr Address, values ...uint64) *Transaction {
	tx := &Transaction{Inputs: inputs}

	for _, value := range values {
		tx.Outputs = append(tx.Outputs, NewValueOutput(addr, value))
	}

	return tx
}
