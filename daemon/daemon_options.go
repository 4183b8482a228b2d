package daemon

import (
	"context"

	"github.com/bitnames/bitnames/services/mainchain"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
)

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

// WithContext allows setting a custom context for the Daemon.
func WithContext(ctx context.Context) Option {
	return func(d *Daemon) {
		d.Ctx = ctx
	}
}

// WithUTXOStore uses store instead of the one configured by the utxostore setting.
func WithUTXOStore(store utxo.Store) Option {
	return func(d *Daemon) {
		d.utxoStore = store
	}
}

// WithMainchain uses client instead of the JSON-RPC client of the mainchain settings.
func WithMainchain(client mainchain.Interface) Option {
	return func(d *Daemon) {
		d.mainchain = client
	}
}
