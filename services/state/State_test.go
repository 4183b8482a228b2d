package state

import (
	"context"
	"testing"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addressA = model.NewTestAddress(0xaa)
	addressB = model.NewTestAddress(0xbb)
)

func setup(t *testing.T) (*State, *memory.Memory) {
	t.Helper()

	store := memory.New(ulogger.TestLogger{})
	s := New(ulogger.TestLogger{}, store)
	require.NoError(t, s.Init(context.Background()))

	return s, store
}

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))

	return m.GetCounter().GetValue()
}

func registerTx(inputs []model.OutPoint, key string) *model.Transaction {
	return &model.Transaction{
		Inputs: inputs,
		Outputs: []model.Output{
			model.NewBitNameOutput(addressB, chainhash.HashH([]byte(key)), chainhash.HashH([]byte(key+"-value"))),
		},
	}
}

func TestConnectBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("funding then spending", func(t *testing.T) {
		s, store := setup(t)

		funding := model.NewTestFundingTransaction(1, addressA, 100)
		block1 := model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{funding})
		require.NoError(t, s.ConnectBlock(ctx, block1))

		tipHash, height := s.Tip()
		assert.Equal(t, block1.Hash(), tipHash)
		assert.Equal(t, uint32(1), height)

		bestHash, bestHeight, err := store.GetBestBlock(ctx)
		require.NoError(t, err)
		assert.Equal(t, block1.Hash(), bestHash)
		assert.Equal(t, uint32(1), bestHeight)

		utxos, err := store.GetByAddresses(ctx, []model.Address{addressA})
		require.NoError(t, err)
		require.Len(t, utxos, 1)

		spending := model.NewTestSpendingTransaction([]model.OutPoint{utxos[0].OutPoint}, addressB, 90)
		require.NoError(t, store.Spend(ctx, spending.Inputs, spending.TxID()))

		block2 := model.NewBlock(block1.Hash(), 2, []*model.Transaction{spending})
		require.NoError(t, s.ConnectBlock(ctx, block2))

		utxos, err = store.GetByAddresses(ctx, []model.Address{addressA})
		require.NoError(t, err)
		assert.Empty(t, utxos)

		_, err = store.Get(ctx, spending.Inputs[0])
		assert.True(t, errors.Is(err, errors.ErrTxNotFound))

		utxos, err = store.GetByAddresses(ctx, []model.Address{addressB})
		require.NoError(t, err)
		require.Len(t, utxos, 1)
		assert.Equal(t, uint64(90), utxos[0].Output.Value)
	})

	t.Run("wrong parent", func(t *testing.T) {
		s, _ := setup(t)

		block := model.NewBlock(chainhash.HashH([]byte("other")), 1, nil)
		err := s.ConnectBlock(ctx, block)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("wrong height", func(t *testing.T) {
		s, _ := setup(t)

		block := model.NewBlock(chainhash.Hash{}, 5, nil)
		err := s.ConnectBlock(ctx, block)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("tampered merkle root", func(t *testing.T) {
		s, _ := setup(t)

		block := model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{model.NewTestFundingTransaction(1, addressA, 100)})
		block.Header.MerkleRoot = chainhash.Hash{}

		err := s.ConnectBlock(ctx, block)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("registers bitnames", func(t *testing.T) {
		s, store := setup(t)

		tx := registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("x")), 0)}, "alice")
		require.NoError(t, s.ConnectBlock(ctx, model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{tx})))

		key := chainhash.HashH([]byte("alice"))

		names, err := store.GetBitNames(ctx, []chainhash.Hash{key})
		require.NoError(t, err)
		assert.Equal(t, chainhash.HashH([]byte("alice-value")), names[key])

		existing, err := s.ExistingKeys(ctx, []chainhash.Hash{key, chainhash.HashH([]byte("bob"))})
		require.NoError(t, err)
		assert.Equal(t, []chainhash.Hash{key}, existing)
	})
}

func TestValidateBody(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate key in body", func(t *testing.T) {
		s, _ := setup(t)

		body := &model.Body{Transactions: []*model.Transaction{
			registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("x")), 0)}, "alice"),
			registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("y")), 0)}, "alice"),
		}}

		err := s.ValidateBody(ctx, body)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrKeyAlreadyExists))
	})

	t.Run("key already registered", func(t *testing.T) {
		s, _ := setup(t)

		first := registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("x")), 0)}, "alice")
		block := model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{first})
		require.NoError(t, s.ConnectBlock(ctx, block))

		second := registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("y")), 0)}, "alice")

		err := s.ValidateBody(ctx, &model.Body{Transactions: []*model.Transaction{second}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrKeyAlreadyExists))

		err = s.ConnectBlock(ctx, model.NewBlock(block.Hash(), 2, []*model.Transaction{second}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))

		_, height := s.Tip()
		assert.Equal(t, uint32(1), height)
	})

	t.Run("valid body", func(t *testing.T) {
		s, _ := setup(t)

		body := &model.Body{Transactions: []*model.Transaction{
			registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("x")), 0)}, "alice"),
			registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("y")), 0)}, "bob"),
		}}

		require.NoError(t, s.ValidateBody(ctx, body))
	})
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	store := memory.New(ulogger.TestLogger{})
	key := chainhash.HashH([]byte("carol"))
	tip := chainhash.HashH([]byte("block 7"))

	require.NoError(t, store.SetBitNames(ctx, []model.BitName{{Key: key, Value: chainhash.HashH([]byte("v"))}}))
	require.NoError(t, store.SetBestBlock(ctx, tip, 7))

	s := New(ulogger.TestLogger{}, store)
	require.NoError(t, s.Init(ctx))

	existing, err := s.ExistingKeys(ctx, []chainhash.Hash{key})
	require.NoError(t, err)
	assert.Equal(t, []chainhash.Hash{key}, existing)

	tipHash, height := s.Tip()
	assert.Equal(t, tip, tipHash)
	assert.Equal(t, uint32(7), height)

	err = s.ConnectBlock(ctx, model.NewBlock(chainhash.HashH([]byte("whatever")), 8, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))

	block := model.NewBlock(tip, 8, nil)
	require.NoError(t, s.ConnectBlock(ctx, block))

	tipHash, height = s.Tip()
	assert.Equal(t, block.Hash(), tipHash)
	assert.Equal(t, uint32(8), height)
}

func TestRejectInvalidTxs(t *testing.T) {
	ctx := context.Background()

	s, store := setup(t)

	funding := model.NewTestFundingTransaction(1, addressA, 10, 20, 30)
	_, err := store.Create(ctx, funding, 1)
	require.NoError(t, err)

	taken := registerTx([]model.OutPoint{model.NewOutPoint(chainhash.HashH([]byte("x")), 0)}, "alice")
	require.NoError(t, s.ConnectBlock(ctx, model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{taken})))

	again := registerTx([]model.OutPoint{model.NewOutPoint(funding.TxID(), 0)}, "alice")
	bob := registerTx([]model.OutPoint{model.NewOutPoint(funding.TxID(), 1)}, "bob")
	bobAgain := registerTx([]model.OutPoint{model.NewOutPoint(funding.TxID(), 2)}, "bob")

	for _, tx := range []*model.Transaction{again, bob, bobAgain} {
		require.NoError(t, store.Spend(ctx, tx.Inputs, tx.TxID()))
	}

	rejected := counterValue(t, prometheusStateRejectedTxs)

	invalid, err := s.RejectInvalidTxs(ctx, &model.Body{Transactions: []*model.Transaction{again, bob, bobAgain}})
	require.NoError(t, err)
	assert.Equal(t, []chainhash.Hash{again.TxID(), bobAgain.TxID()}, invalid)
	assert.InDelta(t, rejected+2, counterValue(t, prometheusStateRejectedTxs), 0.001)

	for _, tx := range []*model.Transaction{again, bobAgain} {
		resp, err := store.Get(ctx, tx.Inputs[0])
		require.NoError(t, err)
		assert.False(t, resp.IsSpent())
	}

	resp, err := store.Get(ctx, bob.Inputs[0])
	require.NoError(t, err)
	assert.True(t, resp.IsSpent())

	invalid, err = s.RejectInvalidTxs(ctx, &model.Body{Transactions: []*model.Transaction{bob}})
	require.NoError(t, err)
	assert.Empty(t, invalid)
}

func TestStartStop(t *testing.T) {
	s, _ := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	readyCh := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.Start(ctx, readyCh)
	}()

	<-readyCh
	cancel()

	require.NoError(t, <-done)
	require.NoError(t, s.Stop(context.Background()))
}
