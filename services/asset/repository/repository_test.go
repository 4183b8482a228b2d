package repository

import (
	"bytes"
	"context"
	"testing"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTip struct {
	hash   chainhash.Hash
	height uint32
}

func (f fixedTip) Tip() (chainhash.Hash, uint32) {
	return f.hash, f.height
}

func TestNewRepositoryRequiresDependencies(t *testing.T) {
	logger := ulogger.TestLogger{}

	_, err := NewRepository(logger, nil, fixedTip{})
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	_, err = NewRepository(logger, memory.New(logger), nil)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	logger := ulogger.TestLogger{}

	store := memory.New(logger)
	tip := fixedTip{hash: chainhash.HashH([]byte("tip")), height: 7}

	repo, err := NewRepository(logger, store, tip)
	require.NoError(t, err)

	owner := model.NewTestAddress(0xaa)
	funding := model.NewTestFundingTransaction(1, owner, 100, 50)

	_, err = store.Create(ctx, funding, 1)
	require.NoError(t, err)

	keyA := chainhash.HashH([]byte("alice"))
	keyB := chainhash.HashH([]byte("bob"))

	require.NoError(t, store.SetBitNames(ctx, []model.BitName{
		{Key: keyB, Value: chainhash.HashH([]byte("b"))},
		{Key: keyA, Value: chainhash.HashH([]byte("a"))},
	}))

	t.Run("utxos", func(t *testing.T) {
		utxos, err := repo.GetUtxosByAddress(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, utxos, 2)

		utxos, err = repo.GetUtxosByAddress(ctx, model.NewTestAddress(0xbb))
		require.NoError(t, err)
		assert.Empty(t, utxos)
	})

	t.Run("bitname", func(t *testing.T) {
		name, err := repo.GetBitName(ctx, keyA)
		require.NoError(t, err)
		assert.Equal(t, chainhash.HashH([]byte("a")), name.Value)

		_, err = repo.GetBitName(ctx, chainhash.HashH([]byte("carol")))
		assert.True(t, errors.Is(err, errors.ErrNotFound))

		// only the registered key is remembered
		assert.Equal(t, 1, repo.bitNames.ItemCount())

		cached, ok := repo.bitNames.Get(keyA.String())
		require.True(t, ok)
		assert.Equal(t, chainhash.HashH([]byte("a")), cached)

		name, err = repo.GetBitName(ctx, keyA)
		require.NoError(t, err)
		assert.Equal(t, chainhash.HashH([]byte("a")), name.Value)
	})

	t.Run("list is sorted by key", func(t *testing.T) {
		first, second := keyA, keyB
		if bytes.Compare(keyA[:], keyB[:]) > 0 {
			first, second = keyB, keyA
		}

		names, total, err := repo.ListBitNames(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, names, 2)
		assert.Equal(t, first, names[0].Key)

		names, total, err = repo.ListBitNames(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, names, 1)
		assert.Equal(t, second, names[0].Key)
	})

	t.Run("tip", func(t *testing.T) {
		hash, height := repo.GetTip()
		assert.Equal(t, tip.hash, hash)
		assert.Equal(t, uint32(7), height)
	})
}
