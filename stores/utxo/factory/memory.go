package factory

import (
	"context"
	"net/url"

	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/ulogger"
)

func init() {
	availableDatabases["memory"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, _ *url.URL) (utxo.Store, error) {
		return memory.New(logger), nil
	}
}
