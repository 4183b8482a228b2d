// Package memory is an in-process utxo.Store. Everything lives behind one mutex, which makes
// Spend trivially all-or-nothing.
package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
)

type entry struct {
	utxo         *model.Utxo
	spendingTxID *chainhash.Hash
	blockHeight  uint32
}

type Memory struct {
	logger      ulogger.Logger
	mu          sync.RWMutex
	utxos       *swiss.Map[model.OutPoint, *entry]
	byAddress   map[model.Address]map[model.OutPoint]struct{}
	bitNames    map[chainhash.Hash]chainhash.Hash
	bestHash    chainhash.Hash
	bestHeight  uint32
}

func New(logger ulogger.Logger) *Memory {
	return &Memory{
		logger:    logger,
		utxos:     swiss.NewMap[model.OutPoint, *entry](1024),
		byAddress: make(map[model.Address]map[model.OutPoint]struct{}),
		bitNames:  make(map[chainhash.Hash]chainhash.Hash),
	}
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "Memory Store available", nil
}

func (m *Memory) Create(_ context.Context, tx *model.Transaction, blockHeight uint32) ([]*model.Utxo, error) {
	utxos := tx.Utxos()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range utxos {
		if m.utxos.Has(u.OutPoint) {
			return nil, errors.NewTxAlreadyExistsError("utxo %s already exists", u.OutPoint)
		}
	}

	m.putUtxos(utxos, blockHeight)

	return utxos, nil
}

func (m *Memory) putUtxos(utxos []*model.Utxo, blockHeight uint32) {
	for _, u := range utxos {
		m.utxos.Put(u.OutPoint, &entry{utxo: u, blockHeight: blockHeight})

		owned, ok := m.byAddress[u.Output.Address]
		if !ok {
			owned = make(map[model.OutPoint]struct{})
			m.byAddress[u.Output.Address] = owned
		}

		owned[u.OutPoint] = struct{}{}
	}
}

func (m *Memory) Get(_ context.Context, outpoint model.OutPoint) (*utxo.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.utxos.Get(outpoint)
	if !ok {
		return nil, errors.NewTxNotFoundError("utxo %s not found", outpoint)
	}

	return &utxo.Response{Utxo: e.utxo, SpendingTxID: e.spendingTxID}, nil
}

func (m *Memory) Spend(_ context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// check everything before touching anything
	for _, outpoint := range outpoints {
		e, ok := m.utxos.Get(outpoint)
		if !ok {
			return errors.NewTxNotFoundError("utxo %s not found", outpoint)
		}

		if e.spendingTxID != nil {
			return errors.NewUtxoSpentError(outpoint.TxID, outpoint.Vout, *e.spendingTxID, nil)
		}
	}

	for _, outpoint := range outpoints {
		e, _ := m.utxos.Get(outpoint)

		txID := spendingTxID
		e.spendingTxID = &txID
	}

	return nil
}

func (m *Memory) UnSpend(_ context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, outpoint := range outpoints {
		e, ok := m.utxos.Get(outpoint)
		if !ok || e.spendingTxID == nil || *e.spendingTxID != spendingTxID {
			continue
		}

		e.spendingTxID = nil
	}

	return nil
}

func (m *Memory) Delete(_ context.Context, outpoints []model.OutPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteUtxos(outpoints)

	return nil
}

func (m *Memory) deleteUtxos(outpoints []model.OutPoint) {
	for _, outpoint := range outpoints {
		e, ok := m.utxos.Get(outpoint)
		if !ok {
			continue
		}

		m.utxos.Delete(outpoint)

		if owned, ok := m.byAddress[e.utxo.Output.Address]; ok {
			delete(owned, outpoint)

			if len(owned) == 0 {
				delete(m.byAddress, e.utxo.Output.Address)
			}
		}
	}
}

func (m *Memory) GetByAddresses(_ context.Context, addresses []model.Address) ([]*model.Utxo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Utxo, 0)

	for _, addr := range utxo.UniqueAddresses(addresses) {
		owned := m.byAddress[addr]
		utxos := make([]*model.Utxo, 0, len(owned))

		for outpoint := range owned {
			e, ok := m.utxos.Get(outpoint)
			if !ok || e.spendingTxID != nil {
				continue
			}

			utxos = append(utxos, e.utxo)
		}

		utxo.SortUtxos(utxos)

		result = append(result, utxos...)
	}

	return result, nil
}

func (m *Memory) GetBitNames(_ context.Context, keys []chainhash.Hash) (map[chainhash.Hash]chainhash.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[chainhash.Hash]chainhash.Hash)

	for _, key := range keys {
		if value, ok := m.bitNames[key]; ok {
			found[key] = value
		}
	}

	return found, nil
}

func (m *Memory) ListBitNames(_ context.Context) ([]model.BitName, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]model.BitName, 0, len(m.bitNames))
	for key, value := range m.bitNames {
		names = append(names, model.BitName{Key: key, Value: value})
	}

	return names, nil
}

func (m *Memory) SetBitNames(_ context.Context, names []model.BitName) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[chainhash.Hash]struct{}, len(names))

	for _, name := range names {
		if _, ok := m.bitNames[name.Key]; ok {
			return errors.NewKeyAlreadyExistsError("bitname key %s already exists", name.Key)
		}

		if _, ok := seen[name.Key]; ok {
			return errors.NewKeyAlreadyExistsError("bitname key %s registered twice", name.Key)
		}

		seen[name.Key] = struct{}{}
	}

	for _, name := range names {
		m.bitNames[name.Key] = name.Value
	}

	return nil
}

func (m *Memory) ListBitNamesPage(ctx context.Context, offset, limit int) ([]model.BitName, int, error) {
	names, err := m.ListBitNames(ctx)
	if err != nil {
		return nil, 0, err
	}

	utxo.SortBitNames(names)

	start, end := utxo.PageBounds(len(names), offset, limit)

	return names[start:end], len(names), nil
}

// ConnectBlock checks every output and key against the store and the block itself before
// changing anything.
func (m *Memory) ConnectBlock(_ context.Context, block *model.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := make(map[model.OutPoint]struct{})
	keys := make(map[chainhash.Hash]struct{})

	for _, tx := range block.Body.Transactions {
		for _, u := range tx.Utxos() {
			if _, ok := created[u.OutPoint]; ok || m.utxos.Has(u.OutPoint) {
				return errors.NewTxAlreadyExistsError("utxo %s already exists", u.OutPoint)
			}

			created[u.OutPoint] = struct{}{}
		}

		for _, name := range tx.BitNames() {
			if _, ok := keys[name.Key]; ok {
				return errors.NewKeyAlreadyExistsError("bitname key %s registered twice", name.Key)
			}

			if _, ok := m.bitNames[name.Key]; ok {
				return errors.NewKeyAlreadyExistsError("bitname key %s already exists", name.Key)
			}

			keys[name.Key] = struct{}{}
		}
	}

	height := block.Header.Height

	for _, tx := range block.Body.Transactions {
		m.deleteUtxos(tx.Inputs)
		m.putUtxos(tx.Utxos(), height)

		for _, name := range tx.BitNames() {
			m.bitNames[name.Key] = name.Value
		}
	}

	m.bestHash = block.Hash()
	m.bestHeight = height

	return nil
}

func (m *Memory) GetBestBlock(_ context.Context) (chainhash.Hash, uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.bestHash, m.bestHeight, nil
}

func (m *Memory) SetBestBlock(_ context.Context, hash chainhash.Hash, height uint32) error {
	m.logger.Debugf("[Memory] best block is %s at height %d", hash, height)

	m.mu.Lock()
	m.bestHash = hash
	m.bestHeight = height
	m.mu.Unlock()

	return nil
}
