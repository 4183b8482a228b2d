package factory

import (
	"context"
	"net/url"
	"testing"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo/logger"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/stores/utxo/sql"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsWithStore(t *testing.T, rawURL string) *settings.Settings {
	storeURL, err := url.Parse(rawURL)
	require.NoError(t, err)

	return &settings.Settings{
		DataFolder: t.TempDir(),
		UtxoStore:  settings.UtxoStoreSettings{StoreURL: storeURL},
	}
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := NewStore(ctx, ulogger.TestLogger{}, settingsWithStore(t, "memory://"), "test")
		require.NoError(t, err)
		assert.IsType(t, &memory.Memory{}, store)
	})

	t.Run("sqlitememory", func(t *testing.T) {
		store, err := NewStore(ctx, ulogger.TestLogger{}, settingsWithStore(t, "sqlitememory:///utxos"), "test")
		require.NoError(t, err)
		assert.IsType(t, &sql.Store{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := NewStore(ctx, ulogger.TestLogger{}, settingsWithStore(t, "sqlite:///utxos"), "test")
		require.NoError(t, err)
		assert.IsType(t, &sql.Store{}, store)
	})

	t.Run("logging", func(t *testing.T) {
		store, err := NewStore(ctx, ulogger.TestLogger{}, settingsWithStore(t, "memory://?logging=true"), "test")
		require.NoError(t, err)
		assert.IsType(t, &logger.Store{}, store)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := NewStore(ctx, ulogger.TestLogger{}, settingsWithStore(t, "aerospike://localhost:3000"), "test")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := NewStore(ctx, ulogger.TestLogger{}, &settings.Settings{}, "test")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}
