package daemon

import (
	"context"
	"net"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/services/asset"
	"github.com/bitnames/bitnames/services/blockassembly"
	"github.com/bitnames/bitnames/services/bmm"
	"github.com/bitnames/bitnames/services/gateway"
	"github.com/bitnames/bitnames/services/mainchain"
	"github.com/bitnames/bitnames/services/state"
	"github.com/bitnames/bitnames/services/validator"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo/factory"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/retry"
	"github.com/bitnames/bitnames/util/servicemanager"
)

// startServices builds the node bottom up: the UTXO store, the sidechain state, block
// assembly, the mainchain client, the validator, the BMM coordinator and finally the gateway
// that exposes them. The read only asset HTTP API runs when asset_httpListenAddress is set.
func (d *Daemon) startServices(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings,
	sm *servicemanager.ServiceManager) error {
	createLogger := d.loggerFactory

	store := d.utxoStore
	if store == nil {
		if err := waitForPostgres(ctx, logger, tSettings); err != nil {
			return err
		}

		var err error

		store, err = factory.NewStore(ctx, createLogger("utxo"), tSettings, "daemon")
		if err != nil {
			return err
		}
	}

	sidechainState := state.New(createLogger("state"), store)

	// Init loads the registry and the tip, block assembly builds on top of it
	if err := sm.AddService("State", sidechainState); err != nil {
		return err
	}

	blockAssembler := blockassembly.New(createLogger("ba"), tSettings, sidechainState)
	blockAssembler.SetBestBlock(sidechainState.Tip())

	mainchainClient := d.mainchain
	if mainchainClient == nil {
		rpcClient, err := mainchain.NewRPCClient(createLogger("mainchain"), tSettings)
		if err != nil {
			return err
		}

		mainchainClient = rpcClient
	}

	var validatorOpts []validator.Option

	if tSettings.Validator.RelayTxs {
		relay, err := getKafkaRelayProducer(ctx, createLogger("kafka"), tSettings)
		if err != nil {
			return err
		}

		d.closers = append(d.closers, relay.Close)

		validatorOpts = append(validatorOpts, validator.WithRelay(relay.producer))
	}

	txValidator := validator.New(ctx, createLogger("validator"), tSettings, store, blockAssembler, sidechainState, validatorOpts...)

	coordinator := bmm.New(ctx, createLogger("bmm"), tSettings, blockAssembler, sidechainState, mainchainClient)

	if tSettings.Asset.HTTPListenAddress != "" {
		if err := sm.AddService("Asset", asset.New(createLogger("asset"), tSettings, store, sidechainState)); err != nil {
			return err
		}
	}

	return sm.AddService("Gateway", gateway.New(createLogger("gateway"), tSettings, txValidator, coordinator, store))
}

// waitForPostgres blocks until a postgres utxo store accepts connections, for a minute at most.
func waitForPostgres(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings) error {
	storeURL := tSettings.UtxoStore.StoreURL
	if storeURL == nil || storeURL.Scheme != "postgres" {
		return nil
	}

	address := storeURL.Host
	if storeURL.Port() == "" {
		address = net.JoinHostPort(storeURL.Hostname(), "5432")
	}

	logger.Infof("Waiting for PostgreSQL to be ready at %s", address)

	_, err := retry.Retry(ctx, logger, func() (struct{}, error) {
		conn, err := net.DialTimeout("tcp", address, time.Second)
		if err != nil {
			return struct{}{}, errors.NewStorageUnavailableError("PostgreSQL is not up yet at %s", address, err)
		}

		_ = conn.Close()

		return struct{}{}, nil
	},
		retry.WithMessage("[Daemon] waiting for PostgreSQL"),
		retry.WithRetryCount(60),
		retry.WithBackoffMultiplier(0),
		retry.WithBackoffDurationType(time.Second),
	)
	if err != nil {
		return errors.NewStorageError("timed out waiting for PostgreSQL to start", err)
	}

	logger.Infof("PostgreSQL is up - ready to go!")

	return nil
}
