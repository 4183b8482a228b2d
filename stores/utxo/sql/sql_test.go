package sql

import (
	"context"
	"net/url"
	"testing"

	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo/tests"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteMemoryStore(t *testing.T) *Store {
	storeURL, err := url.Parse("sqlitememory:///utxos")
	require.NoError(t, err)

	store, err := New(context.Background(), ulogger.TestLogger{}, &settings.Settings{}, storeURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestSQLiteMemory(t *testing.T) {
	for name, fn := range tests.Suite {
		t.Run(name, func(t *testing.T) {
			fn(t, newSQLiteMemoryStore(t))
		})
	}
}

func TestSQLiteFile(t *testing.T) {
	storeURL, err := url.Parse("sqlite:///utxos")
	require.NoError(t, err)

	tSettings := &settings.Settings{DataFolder: t.TempDir()}

	store, err := New(context.Background(), ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	tests.Create(t, store)
	require.NoError(t, store.Close())

	// outputs survive a reopen
	store, err = New(context.Background(), ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	defer store.Close()

	resp, err := store.Get(context.Background(), tests.Outpoint0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), resp.Utxo.Output.Value)
}

func TestSQLiteFileKeepsBestBlock(t *testing.T) {
	ctx := context.Background()

	storeURL, err := url.Parse("sqlite:///utxos")
	require.NoError(t, err)

	tSettings := &settings.Settings{DataFolder: t.TempDir()}

	store, err := New(ctx, ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	_, err = store.Create(ctx, tests.FundingTx, 0)
	require.NoError(t, err)

	block := model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{
		model.NewTestSpendingTransaction([]model.OutPoint{tests.Outpoint0}, tests.AddressB, 90),
	})
	require.NoError(t, store.ConnectBlock(ctx, block))
	require.NoError(t, store.Close())

	store, err = New(ctx, ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	defer store.Close()

	hash, height, err := store.GetBestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), hash)
	assert.Equal(t, uint32(1), height)
}

func TestHealth(t *testing.T) {
	store := newSQLiteMemoryStore(t)

	status, details, err := store.Health(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Contains(t, details, "sqlite")
}
