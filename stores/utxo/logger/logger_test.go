package logger

import (
	"context"
	"testing"

	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/stores/utxo/tests"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/test/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerStore(t *testing.T) {
	for name, fn := range tests.Suite {
		t.Run(name, func(t *testing.T) {
			fn(t, New(ulogger.TestLogger{}, memory.New(ulogger.TestLogger{})))
		})
	}
}

func TestLoggerStoreLogsCalls(t *testing.T) {
	logger := mocklogger.NewTestLogger()
	store := New(logger, memory.New(ulogger.TestLogger{}))

	_, err := store.Create(context.Background(), tests.FundingTx, 1)
	require.NoError(t, err)

	require.NoError(t, store.Spend(context.Background(), []model.OutPoint{tests.Outpoint0}, tests.SpendingTxID))

	assert.True(t, logger.Contains("Infof", "[Create]"))
	assert.True(t, logger.Contains("Infof", tests.Outpoint0.String()))
}
