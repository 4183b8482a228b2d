// Package repository reads the sidechain state served by the asset HTTP API.
package repository

import (
	"context"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/patrickmn/go-cache"
)

const (
	bitNameCacheTTL     = 10 * time.Minute
	bitNameCacheCleanup = 20 * time.Minute
)

type Interface interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	GetUtxosByAddress(ctx context.Context, address model.Address) ([]*model.Utxo, error)
	GetBitName(ctx context.Context, key chainhash.Hash) (*model.BitName, error)
	ListBitNames(ctx context.Context, offset, limit int) ([]model.BitName, int, error)
	GetTip() (chainhash.Hash, uint32)
}

// Tipper reports the hash and height of the last connected block.
type Tipper interface {
	Tip() (chainhash.Hash, uint32)
}

type Repository struct {
	logger    ulogger.Logger
	utxoStore utxo.Store
	tipper    Tipper

	// a registered key never changes value, only hits are cached
	bitNames *cache.Cache
}

func NewRepository(logger ulogger.Logger, utxoStore utxo.Store, tipper Tipper) (*Repository, error) {
	if utxoStore == nil {
		return nil, errors.NewConfigurationError("[Repository] utxo store is required")
	}

	if tipper == nil {
		return nil, errors.NewConfigurationError("[Repository] sidechain state is required")
	}

	return &Repository{
		logger:    logger,
		utxoStore: utxoStore,
		tipper:    tipper,
		bitNames:  cache.New(bitNameCacheTTL, bitNameCacheCleanup),
	}, nil
}

func (r *Repository) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	return r.utxoStore.Health(ctx, checkLiveness)
}

func (r *Repository) GetUtxosByAddress(ctx context.Context, address model.Address) ([]*model.Utxo, error) {
	r.logger.Debugf("[Repository] GetUtxosByAddress: %s", address)

	return r.utxoStore.GetByAddresses(ctx, []model.Address{address})
}

// GetBitName fails with ERR_NOT_FOUND when key is not registered.
func (r *Repository) GetBitName(ctx context.Context, key chainhash.Hash) (*model.BitName, error) {
	if cached, ok := r.bitNames.Get(key.String()); ok {
		return &model.BitName{Key: key, Value: cached.(chainhash.Hash)}, nil
	}

	found, err := r.utxoStore.GetBitNames(ctx, []chainhash.Hash{key})
	if err != nil {
		return nil, err
	}

	value, ok := found[key]
	if !ok {
		return nil, errors.NewNotFoundError("bitname %s is not registered", key)
	}

	r.bitNames.SetDefault(key.String(), value)

	return &model.BitName{Key: key, Value: value}, nil
}

// ListBitNames returns one page of the registry sorted by key, and the size of the registry.
func (r *Repository) ListBitNames(ctx context.Context, offset, limit int) ([]model.BitName, int, error) {
	r.logger.Debugf("[Repository] ListBitNames: offset %d, limit %d", offset, limit)

	return r.utxoStore.ListBitNamesPage(ctx, offset, limit)
}

func (r *Repository) GetTip() (chainhash.Hash, uint32) {
	return r.tipper.Tip()
}
