package model

import (
	"github.com/bitnames/bitnames/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type BlockHeader struct {
	_ struct{} `cbor:",toarray"`

	// Hash of the previous sidechain block header.
	PrevSideHash chainhash.Hash

	// Merkle root of the transaction ids in the body.
	MerkleRoot chainhash.Hash

	Height uint32
}

func NewBlockHeaderFromBytes(headerBytes []byte) (*BlockHeader, error) {
	bh := &BlockHeader{}

	if err := decMode.Unmarshal(headerBytes, bh); err != nil {
		return nil, errors.NewDecodeError("failed to decode block header", err)
	}

	return bh, nil
}

func (bh *BlockHeader) Bytes() []byte {
	b, err := encMode.Marshal(bh)
	if err != nil {
		panic(err)
	}

	return b
}

// Hash is the critical hash committed to the mainchain when the block is mined.
func (bh *BlockHeader) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(bh.Bytes())
}
