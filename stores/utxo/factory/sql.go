package factory

import (
	"context"
	"net/url"

	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/stores/utxo/sql"
	"github.com/bitnames/bitnames/ulogger"
)

func init() {
	newSQLStore := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, url *url.URL) (utxo.Store, error) {
		return sql.New(ctx, logger, tSettings, url)
	}

	availableDatabases["postgres"] = newSQLStore
	availableDatabases["sqlite"] = newSQLStore
	availableDatabases["sqlitememory"] = newSQLStore
}
