package blockassembly

import (
	"context"
	"net/http"
	"sync"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"go.uber.org/atomic"
)

// BlockAssembler is the in-process Store. Transactions are kept in arrival order.
type BlockAssembler struct {
	logger   ulogger.Logger
	settings *settings.Settings
	registry KeyRegistry

	mu           sync.Mutex
	queue        []*Data
	byTxID       map[chainhash.Hash]*Data
	reservedKeys map[chainhash.Hash]chainhash.Hash // bitname key -> reserving txid
	bestHash     chainhash.Hash
	bestHeight   uint32

	totalFees atomic.Uint64
	added     atomic.Uint64
}

func New(logger ulogger.Logger, tSettings *settings.Settings, registry KeyRegistry) *BlockAssembler {
	initPrometheusMetrics()

	return &BlockAssembler{
		logger:       logger,
		settings:     tSettings,
		registry:     registry,
		byTxID:       make(map[chainhash.Hash]*Data),
		reservedKeys: make(map[chainhash.Hash]chainhash.Hash),
	}
}

func (ba *BlockAssembler) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "BlockAssembler available", nil
}

func (ba *BlockAssembler) AddTx(ctx context.Context, data *Data) error {
	ctx, _, deferFn := tracing.Tracer("blockassembly").Start(ctx, "AddTx",
		tracing.WithHistogram(prometheusBlockAssemblyAddTx),
	)
	defer deferFn()

	names := data.Tx.BitNames()

	ba.mu.Lock()
	defer ba.mu.Unlock()

	if _, ok := ba.byTxID[data.TxID]; ok {
		return errors.NewTxAlreadyExistsError("transaction %s is already queued", data.TxID)
	}

	for _, name := range names {
		if owner, ok := ba.reservedKeys[name.Key]; ok {
			return errors.NewKeyAlreadyExistsError("bitname key %s is reserved by queued transaction %s", name.Key, owner)
		}
	}

	// a block connected since the caller checked the registry drops its reservations only
	// after registering its keys, so looking again under ba.mu closes the gap
	if len(names) > 0 {
		keys := make([]chainhash.Hash, 0, len(names))
		for _, name := range names {
			keys = append(keys, name.Key)
		}

		existing, err := ba.registry.ExistingKeys(ctx, keys)
		if err != nil {
			return errors.NewProcessingError("[AddTx][%s] failed to look up bitname keys", data.TxID, err)
		}

		if len(existing) > 0 {
			return errors.NewKeyAlreadyExistsError("bitname key %s is already registered", existing[0])
		}
	}

	for _, name := range names {
		ba.reservedKeys[name.Key] = data.TxID
	}

	ba.queue = append(ba.queue, data)
	ba.byTxID[data.TxID] = data

	ba.totalFees.Add(data.Fee)
	ba.added.Inc()
	prometheusBlockAssemblerTransactions.Set(float64(len(ba.queue)))

	ba.logger.Debugf("[BlockAssembler] queued %s fee %d, %d waiting", data.TxID, data.Fee, len(ba.queue))

	return nil
}

func (ba *BlockAssembler) RemoveTxs(_ context.Context, txIDs []chainhash.Hash) error {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	remove := make(map[chainhash.Hash]struct{}, len(txIDs))

	for _, txID := range txIDs {
		data, ok := ba.byTxID[txID]
		if !ok {
			continue
		}

		remove[txID] = struct{}{}

		delete(ba.byTxID, txID)

		for _, name := range data.Tx.BitNames() {
			if ba.reservedKeys[name.Key] == txID {
				delete(ba.reservedKeys, name.Key)
			}
		}

		ba.totalFees.Sub(data.Fee)
	}

	if len(remove) == 0 {
		return nil
	}

	queue := ba.queue[:0]

	for _, data := range ba.queue {
		if _, ok := remove[data.TxID]; !ok {
			queue = append(queue, data)
		}
	}

	// drop references held beyond the new length
	for i := len(queue); i < len(ba.queue); i++ {
		ba.queue[i] = nil
	}

	ba.queue = queue

	prometheusBlockAssemblyRemoveTx.Add(float64(len(remove)))
	prometheusBlockAssemblerTransactions.Set(float64(len(ba.queue)))

	return nil
}

func (ba *BlockAssembler) GetBlockTemplate(ctx context.Context) (*model.Block, error) {
	_, _, deferFn := tracing.Tracer("blockassembly").Start(ctx, "GetBlockTemplate",
		tracing.WithHistogram(prometheusBlockAssemblyGetBlockTemplate),
	)
	defer deferFn()

	ba.mu.Lock()
	defer ba.mu.Unlock()

	limit := len(ba.queue)
	if maxTxs := ba.settings.BlockAssembly.MaxBlockTransactions; maxTxs > 0 && maxTxs < limit {
		limit = maxTxs
	}

	txs := make([]*model.Transaction, 0, limit)
	for _, data := range ba.queue[:limit] {
		txs = append(txs, data.Tx)
	}

	return model.NewBlock(ba.bestHash, ba.bestHeight+1, txs), nil
}

func (ba *BlockAssembler) ReservedKeys(keys []chainhash.Hash) []chainhash.Hash {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	var reserved []chainhash.Hash

	for _, key := range keys {
		if _, ok := ba.reservedKeys[key]; ok {
			reserved = append(reserved, key)
		}
	}

	return reserved
}

func (ba *BlockAssembler) SetBestBlock(hash chainhash.Hash, height uint32) {
	ba.mu.Lock()
	ba.bestHash = hash
	ba.bestHeight = height
	ba.mu.Unlock()

	prometheusBlockAssemblyBestBlockHeight.Set(float64(height))

	ba.logger.Infof("[BlockAssembler] best block is now %s at height %d", hash, height)
}

func (ba *BlockAssembler) Size() int {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	return len(ba.queue)
}

// TotalFees is the sum of the fees of the queued transactions.
func (ba *BlockAssembler) TotalFees() uint64 {
	return ba.totalFees.Load()
}

// Added counts every transaction ever queued.
func (ba *BlockAssembler) Added() uint64 {
	return ba.added.Load()
}
