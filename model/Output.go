package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// BitName is a key/value registration. Keys are unique across the chain.
type BitName struct {
	_     struct{} `cbor:",toarray"`
	Key   chainhash.Hash
	Value chainhash.Hash
}

// Output is either a plain value output or, when BitName is set, a BitName registration.
// BitName outputs carry no value.
type Output struct {
	_       struct{} `cbor:",toarray"`
	Address Address
	Value   uint64
	BitName *BitName
}

func NewValueOutput(address Address, value uint64) Output {
	return Output{Address: address, Value: value}
}

func NewBitNameOutput(address Address, key, value chainhash.Hash) Output {
	return Output{Address: address, BitName: &BitName{Key: key, Value: value}}
}

func (o *Output) IsBitName() bool {
	return o.BitName != nil
}
