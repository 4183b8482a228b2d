package model

import (
	"github.com/bitnames/bitnames/errors"
)

// Utxo is an unspent output together with the outpoint that references it.
type Utxo struct {
	_        struct{} `cbor:",toarray"`
	OutPoint OutPoint
	Output   Output
}

func NewUtxoFromBytes(b []byte) (*Utxo, error) {
	u := &Utxo{}

	if err := decMode.Unmarshal(b, u); err != nil {
		return nil, errors.NewDecodeError("failed to decode utxo", err)
	}

	return u, nil
}

// Bytes returns the canonical encoding. This is the opaque form returned by address lookups.
func (u *Utxo) Bytes() []byte {
	b, err := encMode.Marshal(u)
	if err != nil {
		panic(err)
	}

	return b
}

// Utxos returns the outputs of tx as unspent outputs.
func (tx *Transaction) Utxos() []*Utxo {
	txID := tx.TxID()
	utxos := make([]*Utxo, 0, len(tx.Outputs))

	for i, output := range tx.Outputs {
		utxos = append(utxos, &Utxo{
			OutPoint: NewOutPoint(txID, uint32(i)), //nolint:gosec // output count is bounded by the decoder
			Output:   output,
		})
	}

	return utxos
}
