package model

import (
	"github.com/bitnames/bitnames/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Body struct {
	_            struct{} `cbor:",toarray"`
	Transactions []*Transaction
}

type Block struct {
	_      struct{} `cbor:",toarray"`
	Header BlockHeader
	Body   Body
}

// NewBlock builds the block at height on top of prevSideHash, committing to txs.
func NewBlock(prevSideHash chainhash.Hash, height uint32, txs []*Transaction) *Block {
	body := Body{Transactions: txs}

	return &Block{
		Header: BlockHeader{
			PrevSideHash: prevSideHash,
			MerkleRoot:   body.MerkleRoot(),
			Height:       height,
		},
		Body: body,
	}
}

func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	block := &Block{}

	if err := decMode.Unmarshal(blockBytes, block); err != nil {
		return nil, errors.NewDecodeError("failed to decode block", err)
	}

	return block, nil
}

func (b *Block) Bytes() []byte {
	bytes, err := encMode.Marshal(b)
	if err != nil {
		panic(err)
	}

	return bytes
}

func (b *Block) Hash() chainhash.Hash {
	return b.Header.Hash()
}

// CheckMerkleRoot verifies that the header commits to the body.
func (b *Block) CheckMerkleRoot() error {
	if root := b.Body.MerkleRoot(); root != b.Header.MerkleRoot {
		return errors.NewBlockInvalidError("merkle root mismatch: header %s, body %s", b.Header.MerkleRoot, root)
	}

	return nil
}

func (body *Body) TxIDs() []chainhash.Hash {
	ids := make([]chainhash.Hash, 0, len(body.Transactions))
	for _, tx := range body.Transactions {
		ids = append(ids, tx.TxID())
	}

	return ids
}

// MerkleRoot computes the bitcoin style merkle root of the body transaction ids, duplicating
// the last node of odd levels. An empty body has the zero root.
func (body *Body) MerkleRoot() chainhash.Hash {
	level := body.TxIDs()
	if len(level) == 0 {
		return chainhash.Hash{}
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]chainhash.Hash, 0, len(level)/2)

		for i := 0; i < len(level); i += 2 {
			var pair [chainhash.HashSize * 2]byte

			copy(pair[:chainhash.HashSize], level[i][:])
			copy(pair[chainhash.HashSize:], level[i+1][:])

			next = append(next, chainhash.DoubleHashH(pair[:]))
		}

		level = next
	}

	return level[0]
}
