package validator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/blockassembly"
	"github.com/bitnames/bitnames/services/state"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addressA = model.NewTestAddress(0xaa)
	addressB = model.NewTestAddress(0xbb)
	addressC = model.NewTestAddress(0xcc)
)

type testRelay struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (r *testRelay) Send(_ []byte, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.sent = append(r.sent, data)

	return nil
}

func (r *testRelay) Close() error {
	return nil
}

type fixture struct {
	validator *Validator
	store     *memory.Memory
	ba        *blockassembly.BlockAssembler
	state     *state.State
	funding   *model.Transaction
	outpointA model.OutPoint
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	tSettings := &settings.Settings{
		Validator: settings.ValidatorSettings{
			RejectCacheTTL:  time.Minute,
			RejectCacheSize: 100,
		},
		BlockAssembly: settings.BlockAssemblySettings{
			MaxBlockTransactions: 100,
		},
	}

	logger := ulogger.TestLogger{}
	store := memory.New(logger)
	st := state.New(logger, store)
	require.NoError(t, st.Init(ctx))
	ba := blockassembly.New(logger, tSettings, st)

	// A is worth 100
	funding := model.NewTestFundingTransaction(1, addressA, 100)
	_, err := store.Create(ctx, funding, 1)
	require.NoError(t, err)

	return &fixture{
		validator: New(ctx, logger, tSettings, store, ba, st, opts...),
		store:     store,
		ba:        ba,
		state:     st,
		funding:   funding,
		outpointA: model.NewOutPoint(funding.TxID(), 0),
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid transaction", func(t *testing.T) {
		f := setup(t)

		tx := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 90)

		result, err := f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		require.True(t, result.Valid, "%v", result.RejectReason)
		assert.Equal(t, uint64(10), result.Fee)
		assert.Equal(t, tx.TxID(), result.TxID)

		resp, err := f.store.Get(ctx, f.outpointA)
		require.NoError(t, err)
		require.True(t, resp.IsSpent())
		assert.Equal(t, tx.TxID(), *resp.SpendingTxID)

		assert.Equal(t, 1, f.ba.Size())
		assert.Equal(t, uint64(10), f.ba.TotalFees())

		utxos, err := f.store.GetByAddresses(ctx, []model.Address{addressA})
		require.NoError(t, err)
		assert.Empty(t, utxos)
	})

	t.Run("spending A twice", func(t *testing.T) {
		f := setup(t)

		first := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 90)
		result, err := f.validator.Validate(ctx, first.Bytes())
		require.NoError(t, err)
		require.True(t, result.Valid)

		second := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressC, 80)
		result, err = f.validator.Validate(ctx, second.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrTxUnknownOrSpentInput))

		resp, err := f.store.Get(ctx, f.outpointA)
		require.NoError(t, err)
		assert.Equal(t, first.TxID(), *resp.SpendingTxID)
		assert.Equal(t, 1, f.ba.Size())
	})

	t.Run("spent input released", func(t *testing.T) {
		f := setup(t)

		first := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 90)
		result, err := f.validator.Validate(ctx, first.Bytes())
		require.NoError(t, err)
		require.True(t, result.Valid)

		second := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressC, 80)
		result, err = f.validator.Validate(ctx, second.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Nil(t, f.validator.rejectCache.Get(second.TxID()))

		// first leaves block assembly without being confirmed
		require.NoError(t, f.ba.RemoveTxs(ctx, []chainhash.Hash{first.TxID()}))
		require.NoError(t, f.store.UnSpend(ctx, first.Inputs, first.TxID()))

		result, err = f.validator.Validate(ctx, second.Bytes())
		require.NoError(t, err)
		require.True(t, result.Valid, "%v", result.RejectReason)
		assert.Equal(t, uint64(20), result.Fee)
	})

	t.Run("malformed", func(t *testing.T) {
		f := setup(t)

		result, err := f.validator.Validate(ctx, []byte{0xde, 0xad, 0xbe, 0xef})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrTxMalformed))
	})

	t.Run("no outputs", func(t *testing.T) {
		f := setup(t)

		tx := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB)

		result, err := f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrTxMalformed))
	})

	t.Run("negative fee", func(t *testing.T) {
		f := setup(t)

		tx := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 101)

		result, err := f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrTxNegativeFee))

		resp, err := f.store.Get(ctx, f.outpointA)
		require.NoError(t, err)
		assert.False(t, resp.IsSpent())
		assert.Equal(t, 0, f.ba.Size())

		// the rejection is remembered
		assert.NotNil(t, f.validator.rejectCache.Get(tx.TxID()))

		result, err = f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrTxNegativeFee))
	})

	t.Run("unknown input becomes known", func(t *testing.T) {
		f := setup(t)

		later := model.NewTestFundingTransaction(2, addressA, 40)
		tx := model.NewTestSpendingTransaction([]model.OutPoint{model.NewOutPoint(later.TxID(), 0)}, addressB, 30)

		result, err := f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrTxUnknownOrSpentInput))
		assert.Nil(t, f.validator.rejectCache.Get(tx.TxID()))

		_, err = f.store.Create(ctx, later, 2)
		require.NoError(t, err)

		result, err = f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, uint64(10), result.Fee)
	})

	t.Run("concurrent double submission", func(t *testing.T) {
		f := setup(t)

		tx := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 90)
		txBytes := tx.Bytes()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			valid   int
			invalid int
		)

		for i := 0; i < 16; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				result, err := f.validator.Validate(ctx, txBytes)
				if !assert.NoError(t, err) {
					return
				}

				mu.Lock()
				defer mu.Unlock()

				if result.Valid {
					valid++
				} else {
					assert.True(t, errors.Is(result.RejectReason, errors.ErrTxUnknownOrSpentInput))
					invalid++
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, valid)
		assert.Equal(t, 15, invalid)
		assert.Equal(t, 1, f.ba.Size())
	})
}

func TestValidateBitNames(t *testing.T) {
	ctx := context.Background()

	register := func(input model.OutPoint, key string) *model.Transaction {
		return &model.Transaction{
			Inputs: []model.OutPoint{input},
			Outputs: []model.Output{
				model.NewBitNameOutput(addressB, chainhash.HashH([]byte(key)), chainhash.HashH([]byte("value"))),
				model.NewValueOutput(addressB, 95),
			},
		}
	}

	t.Run("reserved by a pending transaction", func(t *testing.T) {
		f := setup(t)

		funding2 := model.NewTestFundingTransaction(2, addressA, 100)
		_, err := f.store.Create(ctx, funding2, 1)
		require.NoError(t, err)

		result, err := f.validator.Validate(ctx, register(f.outpointA, "alice").Bytes())
		require.NoError(t, err)
		require.True(t, result.Valid, "%v", result.RejectReason)
		assert.Equal(t, uint64(5), result.Fee)

		other := register(model.NewOutPoint(funding2.TxID(), 0), "alice")

		result, err = f.validator.Validate(ctx, other.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrKeyAlreadyExists))
		assert.Nil(t, f.validator.rejectCache.Get(other.TxID()))

		resp, err := f.store.Get(ctx, model.NewOutPoint(funding2.TxID(), 0))
		require.NoError(t, err)
		assert.False(t, resp.IsSpent())
	})

	t.Run("already registered", func(t *testing.T) {
		f := setup(t)

		tx := register(f.outpointA, "bob")
		block := model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{register(model.NewOutPoint(chainhash.HashH([]byte("z")), 0), "bob")})
		require.NoError(t, f.state.ConnectBlock(ctx, block))

		result, err := f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.True(t, errors.Is(result.RejectReason, errors.ErrKeyAlreadyExists))
		assert.NotNil(t, f.validator.rejectCache.Get(tx.TxID()))
	})
}

// connectingRegistry connects the queued block right after answering its first lookup, the
// way a ConfirmBmm landing between the registry check and block assembly would.
type connectingRegistry struct {
	inner *state.State
	ba    *blockassembly.BlockAssembler
	t     *testing.T
	once  sync.Once
}

func (r *connectingRegistry) ExistingKeys(ctx context.Context, keys []chainhash.Hash) ([]chainhash.Hash, error) {
	existing, err := r.inner.ExistingKeys(ctx, keys)

	r.once.Do(func() {
		block, err := r.ba.GetBlockTemplate(ctx)
		require.NoError(r.t, err)
		require.NoError(r.t, r.inner.ConnectBlock(ctx, block))
		require.NoError(r.t, r.ba.RemoveTxs(ctx, block.Body.TxIDs()))
		r.ba.SetBestBlock(block.Hash(), block.Header.Height)
	})

	return existing, err
}

func TestValidateKeyRegisteredDuringValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	funding2 := model.NewTestFundingTransaction(2, addressA, 100)
	_, err := f.store.Create(ctx, funding2, 1)
	require.NoError(t, err)

	key := chainhash.HashH([]byte("alice"))

	first := &model.Transaction{
		Inputs:  []model.OutPoint{f.outpointA},
		Outputs: []model.Output{model.NewBitNameOutput(addressB, key, chainhash.HashH([]byte("first")))},
	}

	result, err := f.validator.Validate(ctx, first.Bytes())
	require.NoError(t, err)
	require.True(t, result.Valid, "%v", result.RejectReason)

	registry := &connectingRegistry{inner: f.state, ba: f.ba, t: t}
	v := New(ctx, ulogger.TestLogger{}, f.validator.settings, f.store, f.ba, registry)

	second := &model.Transaction{
		Inputs:  []model.OutPoint{model.NewOutPoint(funding2.TxID(), 0)},
		Outputs: []model.Output{model.NewBitNameOutput(addressC, key, chainhash.HashH([]byte("second")))},
	}

	result, err = v.Validate(ctx, second.Bytes())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, errors.Is(result.RejectReason, errors.ErrKeyAlreadyExists))

	// first is confirmed and owns the key
	names, err := f.store.GetBitNames(ctx, []chainhash.Hash{key})
	require.NoError(t, err)
	assert.Equal(t, chainhash.HashH([]byte("first")), names[key])
	assert.Equal(t, 0, f.ba.Size())

	resp, err := f.store.Get(ctx, second.Inputs[0])
	require.NoError(t, err)
	assert.False(t, resp.IsSpent())
}

func TestValidateRelay(t *testing.T) {
	ctx := context.Background()

	t.Run("relayed", func(t *testing.T) {
		relay := &testRelay{}
		f := setup(t, WithRelay(relay))

		tx := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 90)

		result, err := f.validator.Validate(ctx, tx.Bytes())
		require.NoError(t, err)
		require.True(t, result.Valid)

		require.Len(t, relay.sent, 1)
		assert.Equal(t, tx.Bytes(), relay.sent[0])
	})

	t.Run("relay failure reverses", func(t *testing.T) {
		relay := &testRelay{err: errors.NewServiceUnavailableError("kafka down")}
		f := setup(t, WithRelay(relay))

		tx := model.NewTestSpendingTransaction([]model.OutPoint{f.outpointA}, addressB, 90)

		_, err := f.validator.Validate(ctx, tx.Bytes())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrServiceError))

		resp, err := f.store.Get(ctx, f.outpointA)
		require.NoError(t, err)
		assert.False(t, resp.IsSpent())
		assert.Equal(t, 0, f.ba.Size())
	})
}

func TestHealth(t *testing.T) {
	f := setup(t)

	status, _, err := f.validator.Health(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
}
