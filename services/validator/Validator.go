package validator

import (
	"context"
	"net/http"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/blockassembly"
	"github.com/bitnames/bitnames/settings"
	utxostore "github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/health"
	"github.com/bitnames/bitnames/util/kafka"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/jellydator/ttlcache/v3"
)

type Validator struct {
	logger         ulogger.Logger
	settings       *settings.Settings
	utxoStore      utxostore.Store
	blockAssembler blockassembly.Store
	keyRegistry    KeyRegistry
	relay          kafka.KafkaProducerI
	rejectCache    *ttlcache.Cache[chainhash.Hash, error]
}

func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, store utxostore.Store,
	blockAssembler blockassembly.Store, keyRegistry KeyRegistry, opts ...Option) *Validator {
	initPrometheusMetrics()

	options := ProcessOptions(opts...)

	cacheOpts := []ttlcache.Option[chainhash.Hash, error]{
		ttlcache.WithTTL[chainhash.Hash, error](tSettings.Validator.RejectCacheTTL),
		ttlcache.WithDisableTouchOnHit[chainhash.Hash, error](),
	}

	if tSettings.Validator.RejectCacheSize > 0 {
		cacheOpts = append(cacheOpts, ttlcache.WithCapacity[chainhash.Hash, error](tSettings.Validator.RejectCacheSize))
	}

	v := &Validator{
		logger:         logger,
		settings:       tSettings,
		utxoStore:      store,
		blockAssembler: blockAssembler,
		keyRegistry:    keyRegistry,
		relay:          options.relay,
		rejectCache:    ttlcache.New[chainhash.Hash, error](cacheOpts...),
	}

	go v.rejectCache.Start()

	go func() {
		<-ctx.Done()
		v.rejectCache.Stop()
	}()

	return v
}

func (v *Validator) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "UTXOStore", Check: v.utxoStore.Health},
		{Name: "BlockAssembly", Check: v.blockAssembler.Health},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (v *Validator) Validate(ctx context.Context, txBytes []byte) (result *Result, err error) {
	ctx, _, deferFn := tracing.Tracer("validator").Start(ctx, "Validate",
		tracing.WithHistogram(prometheusValidatorValidate),
	)

	defer func() {
		deferFn(err)
	}()

	tx, err := model.NewTransactionFromBytes(txBytes)
	if err != nil {
		return v.reject(nil, err, false), nil
	}

	txID := tx.TxID()

	if item := v.rejectCache.Get(txID); item != nil {
		prometheusValidatorRejectCacheHit.Inc()
		return v.reject(&txID, item.Value(), false), nil
	}

	if err = tx.CheckStructure(); err != nil {
		return v.reject(&txID, err, true), nil
	}

	spent, cacheable, err := v.resolveInputs(ctx, tx)
	if err != nil {
		if errors.IsValidationError(err) {
			return v.reject(&txID, err, cacheable), nil
		}

		return nil, err
	}

	fee, err := tx.Fee(spent)
	if err != nil {
		return v.reject(&txID, err, true), nil
	}

	if cacheable, err = v.checkKeys(ctx, tx); err != nil {
		if errors.IsValidationError(err) {
			return v.reject(&txID, err, cacheable), nil
		}

		return nil, err
	}

	if err = v.spendUtxos(ctx, tx, txID); err != nil {
		if errors.IsValidationError(err) {
			return v.reject(&txID, err, false), nil
		}

		return nil, err
	}

	if err = v.sendToBlockAssembler(ctx, tx, fee); err != nil {
		v.reverseSpends(ctx, tx, txID)

		if errors.IsValidationError(err) {
			return v.reject(&txID, err, false), nil
		}

		return nil, err
	}

	if err = v.relayTx(ctx, tx, txID); err != nil {
		if removeErr := v.blockAssembler.RemoveTxs(ctx, []chainhash.Hash{txID}); removeErr != nil {
			v.logger.Errorf("[Validator][%s] failed to remove transaction from block assembly: %v", txID, removeErr)
		}

		v.reverseSpends(ctx, tx, txID)

		return nil, err
	}

	prometheusValidatorValid.Inc()
	prometheusValidatorTransactionFee.Observe(float64(fee))

	v.logger.Debugf("[Validator][%s] accepted with fee %d", txID, fee)

	return &Result{TxID: txID, Valid: true, Fee: fee}, nil
}

// resolveInputs returns the outputs spent by tx. The bool reports whether a rejection is
// final, which it never is for inputs: an unknown input may still be created by a later block
// and a provisional spend may be reversed.
func (v *Validator) resolveInputs(ctx context.Context, tx *model.Transaction) ([]model.Output, bool, error) {
	spent := make([]model.Output, 0, len(tx.Inputs))

	for _, input := range tx.Inputs {
		resp, err := v.utxoStore.Get(ctx, input)
		if err != nil {
			if errors.Is(err, errors.ErrTxNotFound) {
				return nil, false, errors.NewTxUnknownOrSpentInputError("input %s is unknown", input, err)
			}

			return nil, false, errors.NewProcessingError("[Validator] failed to get utxo %s", input, err)
		}

		// the spender may still be rejected from block assembly, releasing the input
		if resp.IsSpent() {
			return nil, false, errors.NewTxUnknownOrSpentInputError("input %s is already spent by %s", input, resp.SpendingTxID)
		}

		spent = append(spent, resp.Utxo.Output)
	}

	return spent, true, nil
}

// checkKeys fails when a BitName key of tx is taken. The bool reports whether the rejection is
// final: the registry only grows, but a reservation is dropped with its transaction.
func (v *Validator) checkKeys(ctx context.Context, tx *model.Transaction) (bool, error) {
	names := tx.BitNames()
	if len(names) == 0 {
		return false, nil
	}

	keys := make([]chainhash.Hash, 0, len(names))
	for _, name := range names {
		keys = append(keys, name.Key)
	}

	existing, err := v.keyRegistry.ExistingKeys(ctx, keys)
	if err != nil {
		return false, errors.NewProcessingError("[Validator] failed to look up bitname keys", err)
	}

	if len(existing) > 0 {
		return true, errors.NewKeyAlreadyExistsError("bitname key %s is already registered", existing[0])
	}

	if reserved := v.blockAssembler.ReservedKeys(keys); len(reserved) > 0 {
		return false, errors.NewKeyAlreadyExistsError("bitname key %s is reserved by a pending transaction", reserved[0])
	}

	return false, nil
}

// spendUtxos marks every input as spent by txID. The store applies all spends or none, so a
// concurrent submission spending the same outputs fails here.
func (v *Validator) spendUtxos(ctx context.Context, tx *model.Transaction, txID chainhash.Hash) (err error) {
	ctx, _, deferFn := tracing.Tracer("validator").Start(ctx, "spendUtxos",
		tracing.WithHistogram(prometheusValidatorSpendUtxos),
	)

	defer func() {
		deferFn(err)
	}()

	if err = v.utxoStore.Spend(ctx, tx.Inputs, txID); err != nil {
		if errors.Is(err, errors.ErrUtxoSpent) || errors.Is(err, errors.ErrTxNotFound) {
			return errors.NewTxUnknownOrSpentInputError("[Validator][%s] inputs could not be spent", txID, err)
		}

		return errors.NewStorageError("[Validator][%s] failed to spend inputs", txID, err)
	}

	return nil
}

func (v *Validator) sendToBlockAssembler(ctx context.Context, tx *model.Transaction, fee uint64) error {
	ctx, _, deferFn := tracing.Tracer("validator").Start(ctx, "sendToBlockAssembler",
		tracing.WithHistogram(prometheusValidatorSendToBA),
	)
	defer deferFn()

	if err := v.blockAssembler.AddTx(ctx, blockassembly.NewData(tx, fee)); err != nil {
		if errors.Is(err, errors.ErrKeyAlreadyExists) {
			return err
		}

		return errors.NewServiceError("[Validator] failed to send transaction to block assembly", err)
	}

	return nil
}

func (v *Validator) relayTx(ctx context.Context, tx *model.Transaction, txID chainhash.Hash) error {
	if v.relay == nil {
		return nil
	}

	_, _, deferFn := tracing.Tracer("validator").Start(ctx, "relayTx",
		tracing.WithHistogram(prometheusValidatorRelay),
	)
	defer deferFn()

	if err := v.relay.Send(txID[:], tx.Bytes()); err != nil {
		return errors.NewServiceError("[Validator][%s] failed to relay transaction", txID, err)
	}

	return nil
}

func (v *Validator) reverseSpends(ctx context.Context, tx *model.Transaction, txID chainhash.Hash) {
	ctx, _, deferFn := tracing.Tracer("validator").Start(ctx, "reverseSpends")
	defer deferFn()

	if err := v.utxoStore.UnSpend(ctx, tx.Inputs, txID); err != nil {
		v.logger.Errorf("[Validator][%s] error reversing spends: %v", txID, err)
	}
}

func (v *Validator) reject(txID *chainhash.Hash, reason error, cache bool) *Result {
	prometheusValidatorRejected.WithLabelValues(rejectLabel(reason)).Inc()

	result := &Result{RejectReason: reason}

	if txID != nil {
		result.TxID = *txID

		if cache {
			v.rejectCache.Set(*txID, reason, ttlcache.DefaultTTL)
		}

		v.logger.Debugf("[Validator][%s] rejected: %v", txID, reason)
	}

	return result
}

func rejectLabel(err error) string {
	var tErr *errors.Error
	if errors.As(err, &tErr) {
		return tErr.Code().String()
	}

	return "UNKNOWN"
}
