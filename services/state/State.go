// Package state applies connected sidechain blocks to the UTXO store and the BitName registry.
package state

import (
	"context"
	"encoding/binary"
	"net/http"
	"sync"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/greatroar/blobloom"
)

const (
	keyFilterCapacity = 1_000_000
	keyFilterFPRate   = 0.001
)

type State struct {
	logger ulogger.Logger
	store  utxo.Store

	// mu serializes block connection and guards the tip and the key filter
	mu        sync.RWMutex
	keyFilter *blobloom.Filter
	tipHash   chainhash.Hash
	height    uint32
}

func New(logger ulogger.Logger, store utxo.Store) *State {
	initPrometheusMetrics()

	return &State{
		logger: logger,
		store:  store,
		keyFilter: blobloom.NewOptimized(blobloom.Config{
			Capacity: keyFilterCapacity,
			FPRate:   keyFilterFPRate,
		}),
	}
}

// Init loads the registered keys into the key filter and picks up the stored best block.
func (s *State) Init(ctx context.Context) error {
	names, err := s.store.ListBitNames(ctx)
	if err != nil {
		return errors.NewProcessingError("[State] failed to load bitname registry", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		s.keyFilter.Add(filterKey(name.Key))
	}

	if s.tipHash, s.height, err = s.store.GetBestBlock(ctx); err != nil {
		return errors.NewProcessingError("[State] failed to load best block", err)
	}

	s.logger.Infof("[State] loaded %d bitnames, tip %s at height %d", len(names), s.tipHash, s.height)

	return nil
}

func (s *State) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	return s.store.Health(ctx, false)
}

// Start only reports readiness, blocks are connected by the caller.
func (s *State) Start(ctx context.Context, readyCh chan<- struct{}) error {
	close(readyCh)

	<-ctx.Done()

	return nil
}

func (s *State) Stop(_ context.Context) error {
	return nil
}

// Tip returns the hash and height of the last connected block.
func (s *State) Tip() (chainhash.Hash, uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tipHash, s.height
}

// ExistingKeys returns the keys that are already registered.
func (s *State) ExistingKeys(ctx context.Context, keys []chainhash.Hash) ([]chainhash.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.existingKeys(ctx, keys)
}

func (s *State) existingKeys(ctx context.Context, keys []chainhash.Hash) ([]chainhash.Hash, error) {
	maybe := make([]chainhash.Hash, 0, len(keys))

	for _, key := range keys {
		if s.keyFilter.Has(filterKey(key)) {
			maybe = append(maybe, key)
		}
	}

	prometheusStateKeyFilterNegatives.Add(float64(len(keys) - len(maybe)))

	if len(maybe) == 0 {
		return nil, nil
	}

	found, err := s.store.GetBitNames(ctx, maybe)
	if err != nil {
		return nil, err
	}

	var existing []chainhash.Hash

	for _, key := range maybe {
		if _, ok := found[key]; ok {
			existing = append(existing, key)
		}
	}

	return existing, nil
}

// ValidateBody checks that no BitName key is registered twice in the body and that none of
// them is in the registry already.
func (s *State) ValidateBody(ctx context.Context, body *model.Body) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.validateBody(ctx, body)
}

func (s *State) validateBody(ctx context.Context, body *model.Body) error {
	seen := make(map[chainhash.Hash]struct{})
	keys := make([]chainhash.Hash, 0)

	for _, tx := range body.Transactions {
		for _, name := range tx.BitNames() {
			if _, ok := seen[name.Key]; ok {
				return errors.NewKeyAlreadyExistsError("bitname key %s is registered twice in the block", name.Key)
			}

			seen[name.Key] = struct{}{}
			keys = append(keys, name.Key)
		}
	}

	existing, err := s.existingKeys(ctx, keys)
	if err != nil {
		return errors.NewProcessingError("failed to look up bitname keys", err)
	}

	if len(existing) > 0 {
		return errors.NewKeyAlreadyExistsError("bitname key %s is already registered", existing[0])
	}

	return nil
}

// ConnectBlock applies the block on top of the current tip: spent inputs are removed, new
// outputs become utxos and BitName keys are registered. The store applies all of it or none.
func (s *State) ConnectBlock(ctx context.Context, block *model.Block) error {
	ctx, _, deferFn := tracing.Tracer("state").Start(ctx, "ConnectBlock",
		tracing.WithHistogram(prometheusStateConnectBlock),
	)
	defer deferFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	if block.Header.PrevSideHash != s.tipHash {
		return errors.NewBlockInvalidError("block %s does not build on tip %s", block.Hash(), s.tipHash)
	}

	if block.Header.Height != s.height+1 {
		return errors.NewBlockInvalidError("block %s has height %d, expected %d", block.Hash(), block.Header.Height, s.height+1)
	}

	if err := block.CheckMerkleRoot(); err != nil {
		return err
	}

	if err := s.validateBody(ctx, &block.Body); err != nil {
		return errors.NewBlockInvalidError("block %s body is invalid", block.Hash(), err)
	}

	if err := s.store.ConnectBlock(ctx, block); err != nil {
		if errors.Is(err, errors.ErrKeyAlreadyExists) || errors.Is(err, errors.ErrTxAlreadyExists) {
			return errors.NewBlockInvalidError("block %s cannot be applied", block.Hash(), err)
		}

		return errors.NewProcessingError("[ConnectBlock][%s] failed to apply block", block.Hash(), err)
	}

	for _, tx := range block.Body.Transactions {
		for _, name := range tx.BitNames() {
			s.keyFilter.Add(filterKey(name.Key))
		}
	}

	height := block.Header.Height

	s.tipHash = block.Hash()
	s.height = height

	prometheusStateBlocksConnected.Inc()
	prometheusStateTransactionsConnected.Add(float64(len(block.Body.Transactions)))
	prometheusStateHeight.Set(float64(height))

	s.logger.Infof("[State] connected block %s at height %d with %d transactions", s.tipHash, height, len(block.Body.Transactions))

	return nil
}

// RejectInvalidTxs returns the transactions of body that can never be connected on the
// current tip and releases the outputs they provisionally spend. A transaction is invalid
// when it registers a key that is already registered, or one an earlier transaction of body
// registers.
func (s *State) RejectInvalidTxs(ctx context.Context, body *model.Body) ([]chainhash.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]chainhash.Hash, 0)

	for _, tx := range body.Transactions {
		for _, name := range tx.BitNames() {
			keys = append(keys, name.Key)
		}
	}

	if len(keys) == 0 {
		return nil, nil
	}

	existing, err := s.existingKeys(ctx, keys)
	if err != nil {
		return nil, errors.NewProcessingError("failed to look up bitname keys", err)
	}

	taken := make(map[chainhash.Hash]struct{}, len(keys))
	for _, key := range existing {
		taken[key] = struct{}{}
	}

	var invalid []chainhash.Hash

	for _, tx := range body.Transactions {
		names := tx.BitNames()

		rejected := false

		for _, name := range names {
			if _, ok := taken[name.Key]; ok {
				rejected = true
				break
			}
		}

		if !rejected {
			// the first registration of a key in the body wins
			for _, name := range names {
				taken[name.Key] = struct{}{}
			}

			continue
		}

		txID := tx.TxID()

		if err = s.store.UnSpend(ctx, tx.Inputs, txID); err != nil {
			return nil, errors.NewProcessingError("failed to release the inputs of %s", txID, err)
		}

		s.logger.Warnf("[State] transaction %s can never be connected, rejecting it", txID)

		invalid = append(invalid, txID)
	}

	prometheusStateRejectedTxs.Add(float64(len(invalid)))

	return invalid, nil
}

func filterKey(key chainhash.Hash) uint64 {
	return binary.BigEndian.Uint64(key[:])
}
