// Package sql is a utxo.Store backed by postgres or sqlite.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util"
	"github.com/bitnames/bitnames/util/usql"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Store struct {
	logger    ulogger.Logger
	db        *usql.DB
	engine    util.SQLEngine
	dbTimeout time.Duration
}

func New(_ context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	initPrometheusMetrics()

	db, engine, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	switch engine {
	case util.Postgres:
		err = createSchema(db, "BYTEA")
	default:
		err = createSchema(db, "BLOB")
	}

	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newStore(logger, db, engine, tSettings.UtxoStore.DBTimeout), nil
}

func newStore(logger ulogger.Logger, db *usql.DB, engine util.SQLEngine, dbTimeout time.Duration) *Store {
	if dbTimeout <= 0 {
		dbTimeout = 5 * time.Second
	}

	return &Store{
		logger:    logger,
		db:        db,
		engine:    engine,
		dbTimeout: dbTimeout,
	}
}

func createSchema(db *usql.DB, blobType string) error {
	ctx := context.Background()

	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS utxos (
		   tx_id          %[1]s NOT NULL
		  ,vout           BIGINT NOT NULL
		  ,address        %[1]s NOT NULL
		  ,utxo           %[1]s NOT NULL
		  ,spending_tx_id %[1]s
		  ,block_height   BIGINT NOT NULL
		  ,PRIMARY KEY (tx_id, vout)
		);`, blobType),
		`CREATE INDEX IF NOT EXISTS idx_utxos_address ON utxos (address);`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS bitnames (
		   name_key   %[1]s NOT NULL PRIMARY KEY
		  ,name_value %[1]s NOT NULL
		);`, blobType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS best_block (
		   id          INTEGER NOT NULL PRIMARY KEY
		  ,block_hash  %[1]s NOT NULL
		  ,height      BIGINT NOT NULL
		);`, blobType),
	}

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.NewStorageError("could not create utxo schema", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Health(ctx context.Context, _ bool) (int, string, error) {
	details := fmt.Sprintf("SQL Engine is %s", s.engine)

	var num int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&num); err != nil {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("sql health check failed", err)
	}

	return http.StatusOK, details, nil
}

func (s *Store) Create(ctx context.Context, tx *model.Transaction, blockHeight uint32) ([]*model.Utxo, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	utxos := tx.Utxos()
	if len(utxos) == 0 {
		return utxos, nil
	}

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("[Create] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	if err = createUtxos(ctx, txn, utxos, blockHeight); err != nil {
		return nil, err
	}

	if err = txn.Commit(); err != nil {
		return nil, errors.NewStorageError("[Create] failed to commit", err)
	}

	prometheusUtxoCreate.Add(float64(len(utxos)))

	return utxos, nil
}

// createUtxos inserts the outputs of one transaction. utxos must not be empty.
func createUtxos(ctx context.Context, txn *usql.Tx, utxos []*model.Utxo, blockHeight uint32) error {
	txID := utxos[0].OutPoint.TxID

	var count int
	if err := txn.QueryRowContext(ctx, `SELECT COUNT(*) FROM utxos WHERE tx_id = $1`, txID[:]).Scan(&count); err != nil {
		return errors.NewStorageError("[Create] failed to check for existing utxos of %s", txID, err)
	}

	if count > 0 {
		return errors.NewTxAlreadyExistsError("utxos of %s already exist", txID)
	}

	q := `INSERT INTO utxos (tx_id, vout, address, utxo, block_height) VALUES ($1, $2, $3, $4, $5)`

	for _, u := range utxos {
		if _, err := txn.ExecContext(ctx, q, txID[:], int64(u.OutPoint.Vout), u.Output.Address[:], u.Bytes(), int64(blockHeight)); err != nil {
			prometheusUtxoErrors.WithLabelValues("Create", err.Error()).Inc()
			return errors.NewStorageError("[Create] failed to insert utxo %s", u.OutPoint, err)
		}
	}

	return nil
}

func (s *Store) Get(ctx context.Context, outpoint model.OutPoint) (*utxo.Response, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	prometheusUtxoGet.Inc()

	var (
		utxoBytes    []byte
		spendingTxID []byte
	)

	err := s.db.QueryRowContext(ctx, `SELECT utxo, spending_tx_id FROM utxos WHERE tx_id = $1 AND vout = $2`,
		outpoint.TxID[:], int64(outpoint.Vout)).Scan(&utxoBytes, &spendingTxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewTxNotFoundError("utxo %s not found", outpoint)
		}

		return nil, errors.NewStorageError("[Get] failed to read utxo %s", outpoint, err)
	}

	u, err := model.NewUtxoFromBytes(utxoBytes)
	if err != nil {
		return nil, errors.NewStorageError("[Get] corrupt utxo %s", outpoint, err)
	}

	resp := &utxo.Response{Utxo: u}

	if len(spendingTxID) > 0 {
		if resp.SpendingTxID, err = chainhash.NewHash(spendingTxID); err != nil {
			return nil, errors.NewStorageError("[Get] corrupt spending tx id for %s", outpoint, err)
		}
	}

	return resp, nil
}

// Spend uses a conditional UPDATE per outpoint inside one DB transaction. The first
// outpoint that is missing or already spent rolls the whole transaction back.
func (s *Store) Spend(ctx context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[Spend] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	q := `
		UPDATE utxos
		SET spending_tx_id = $1
		WHERE tx_id = $2
		AND vout = $3
		AND spending_tx_id IS NULL
	`

	for _, outpoint := range outpoints {
		result, err := txn.ExecContext(ctx, q, spendingTxID[:], outpoint.TxID[:], int64(outpoint.Vout))
		if err != nil {
			prometheusUtxoErrors.WithLabelValues("Spend", err.Error()).Inc()
			return errors.NewStorageError("[Spend] error spending utxo %s", outpoint, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return errors.NewStorageError("[Spend] error spending utxo %s", outpoint, err)
		}

		if affected == 0 {
			return s.spendFailure(ctx, txn, outpoint)
		}
	}

	if err = txn.Commit(); err != nil {
		return errors.NewStorageError("[Spend] failed to commit", err)
	}

	prometheusUtxoSpend.Add(float64(len(outpoints)))

	return nil
}

// spendFailure explains why the conditional update of outpoint matched no row.
func (s *Store) spendFailure(ctx context.Context, txn *usql.Tx, outpoint model.OutPoint) error {
	var existing []byte

	err := txn.QueryRowContext(ctx, `SELECT spending_tx_id FROM utxos WHERE tx_id = $1 AND vout = $2`,
		outpoint.TxID[:], int64(outpoint.Vout)).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NewTxNotFoundError("utxo %s not found", outpoint)
		}

		return errors.NewStorageError("[Spend] failed to read utxo %s", outpoint, err)
	}

	spentBy, err := chainhash.NewHash(existing)
	if err != nil {
		return errors.NewStorageError("[Spend] corrupt spending tx id for %s", outpoint, err)
	}

	return errors.NewUtxoSpentError(outpoint.TxID, outpoint.Vout, *spentBy, nil)
}

func (s *Store) UnSpend(ctx context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[UnSpend] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	q := `
		UPDATE utxos
		SET spending_tx_id = NULL
		WHERE tx_id = $1
		AND vout = $2
		AND spending_tx_id = $3
	`

	for _, outpoint := range outpoints {
		if _, err = txn.ExecContext(ctx, q, outpoint.TxID[:], int64(outpoint.Vout), spendingTxID[:]); err != nil {
			return errors.NewStorageError("[UnSpend] error unspending utxo %s", outpoint, err)
		}

		prometheusUtxoUnSpend.Inc()
	}

	if err = txn.Commit(); err != nil {
		return errors.NewStorageError("[UnSpend] failed to commit", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, outpoints []model.OutPoint) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[Delete] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	if err = deleteUtxos(ctx, txn, outpoints); err != nil {
		return err
	}

	if err = txn.Commit(); err != nil {
		return errors.NewStorageError("[Delete] failed to commit", err)
	}

	prometheusUtxoDelete.Add(float64(len(outpoints)))

	return nil
}

func deleteUtxos(ctx context.Context, txn *usql.Tx, outpoints []model.OutPoint) error {
	for _, outpoint := range outpoints {
		if _, err := txn.ExecContext(ctx, `DELETE FROM utxos WHERE tx_id = $1 AND vout = $2`, outpoint.TxID[:], int64(outpoint.Vout)); err != nil {
			return errors.NewStorageError("[Delete] error deleting utxo %s", outpoint, err)
		}
	}

	return nil
}

func (s *Store) GetByAddresses(ctx context.Context, addresses []model.Address) ([]*model.Utxo, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	result := make([]*model.Utxo, 0)

	q := `
		SELECT utxo
		FROM utxos
		WHERE address = $1
		AND spending_tx_id IS NULL
		ORDER BY tx_id, vout
	`

	for _, addr := range utxo.UniqueAddresses(addresses) {
		utxos, err := s.queryUtxos(ctx, q, addr[:])
		if err != nil {
			return nil, err
		}

		utxo.SortUtxos(utxos)

		result = append(result, utxos...)
	}

	return result, nil
}

func (s *Store) queryUtxos(ctx context.Context, q string, args ...interface{}) ([]*model.Utxo, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.NewStorageError("failed to query utxos", err)
	}

	defer rows.Close()

	utxos := make([]*model.Utxo, 0)

	for rows.Next() {
		var b []byte

		if err = rows.Scan(&b); err != nil {
			return nil, errors.NewStorageError("failed to scan utxo", err)
		}

		u, err := model.NewUtxoFromBytes(b)
		if err != nil {
			return nil, errors.NewStorageError("corrupt utxo", err)
		}

		utxos = append(utxos, u)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read utxos", err)
	}

	return utxos, nil
}

func (s *Store) GetBitNames(ctx context.Context, keys []chainhash.Hash) (map[chainhash.Hash]chainhash.Hash, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	found := make(map[chainhash.Hash]chainhash.Hash)

	for _, key := range keys {
		var value []byte

		err := s.db.QueryRowContext(ctx, `SELECT name_value FROM bitnames WHERE name_key = $1`, key[:]).Scan(&value)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}

			return nil, errors.NewStorageError("failed to read bitname %s", key, err)
		}

		hash, err := chainhash.NewHash(value)
		if err != nil {
			return nil, errors.NewStorageError("corrupt bitname value for %s", key, err)
		}

		found[key] = *hash
	}

	return found, nil
}

func (s *Store) ListBitNames(ctx context.Context) ([]model.BitName, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	return s.queryBitNames(ctx, `SELECT name_key, name_value FROM bitnames`)
}

// ListBitNamesPage leaves ordering and paging to the database. Both engines compare keys
// byte by byte.
func (s *Store) ListBitNamesPage(ctx context.Context, offset, limit int) ([]model.BitName, int, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bitnames`).Scan(&total); err != nil {
		return nil, 0, errors.NewStorageError("failed to count bitnames", err)
	}

	if offset < 0 {
		offset = 0
	}

	if limit <= 0 {
		limit = total
	}

	names, err := s.queryBitNames(ctx, `SELECT name_key, name_value FROM bitnames ORDER BY name_key LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return names, total, nil
}

func (s *Store) queryBitNames(ctx context.Context, q string, args ...interface{}) ([]model.BitName, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.NewStorageError("failed to list bitnames", err)
	}

	defer rows.Close()

	names := make([]model.BitName, 0)

	for rows.Next() {
		var key, value []byte

		if err = rows.Scan(&key, &value); err != nil {
			return nil, errors.NewStorageError("failed to scan bitname", err)
		}

		var name model.BitName

		if len(key) != chainhash.HashSize || len(value) != chainhash.HashSize {
			return nil, errors.NewStorageError("corrupt bitname row")
		}

		copy(name.Key[:], key)
		copy(name.Value[:], value)

		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read bitnames", err)
	}

	return names, nil
}

func (s *Store) SetBitNames(ctx context.Context, names []model.BitName) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[SetBitNames] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	if err = registerBitNames(ctx, txn, names); err != nil {
		return err
	}

	if err = txn.Commit(); err != nil {
		return errors.NewStorageError("[SetBitNames] failed to commit", err)
	}

	return nil
}

// registerBitNames inserts names, failing on a key that is already in the table, including
// one inserted earlier in the same DB transaction.
func registerBitNames(ctx context.Context, txn *usql.Tx, names []model.BitName) error {
	seen := make(map[chainhash.Hash]struct{}, len(names))

	for _, name := range names {
		if _, ok := seen[name.Key]; ok {
			return errors.NewKeyAlreadyExistsError("bitname key %s registered twice", name.Key)
		}

		seen[name.Key] = struct{}{}

		var count int
		if err := txn.QueryRowContext(ctx, `SELECT COUNT(*) FROM bitnames WHERE name_key = $1`, name.Key[:]).Scan(&count); err != nil {
			return errors.NewStorageError("[SetBitNames] failed to read bitname %s", name.Key, err)
		}

		if count > 0 {
			return errors.NewKeyAlreadyExistsError("bitname key %s already exists", name.Key)
		}

		if _, err := txn.ExecContext(ctx, `INSERT INTO bitnames (name_key, name_value) VALUES ($1, $2)`, name.Key[:], name.Value[:]); err != nil {
			return errors.NewStorageError("[SetBitNames] failed to insert bitname %s", name.Key, err)
		}
	}

	return nil
}

// ConnectBlock runs every change of the block in one DB transaction.
func (s *Store) ConnectBlock(ctx context.Context, block *model.Block) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	blockHash := block.Hash()
	height := block.Header.Height

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[ConnectBlock] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	created := 0

	for _, tx := range block.Body.Transactions {
		if err = deleteUtxos(ctx, txn, tx.Inputs); err != nil {
			return err
		}

		if utxos := tx.Utxos(); len(utxos) > 0 {
			if err = createUtxos(ctx, txn, utxos, height); err != nil {
				return err
			}

			created += len(utxos)
		}

		if names := tx.BitNames(); len(names) > 0 {
			if err = registerBitNames(ctx, txn, names); err != nil {
				return err
			}
		}
	}

	if err = setBestBlock(ctx, txn, blockHash, height); err != nil {
		return err
	}

	if err = txn.Commit(); err != nil {
		return errors.NewStorageError("[ConnectBlock] failed to commit block %s", blockHash, err)
	}

	prometheusUtxoCreate.Add(float64(created))

	return nil
}

func (s *Store) GetBestBlock(ctx context.Context) (chainhash.Hash, uint32, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	var (
		hashBytes []byte
		height    int64
	)

	err := s.db.QueryRowContext(ctx, `SELECT block_hash, height FROM best_block WHERE id = 1`).Scan(&hashBytes, &height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chainhash.Hash{}, 0, nil
		}

		return chainhash.Hash{}, 0, errors.NewStorageError("failed to read best block", err)
	}

	hash, err := chainhash.NewHash(hashBytes)
	if err != nil {
		return chainhash.Hash{}, 0, errors.NewStorageError("corrupt best block hash", err)
	}

	return *hash, uint32(height), nil //nolint:gosec // written from a uint32
}

func (s *Store) SetBestBlock(ctx context.Context, hash chainhash.Hash, height uint32) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	s.logger.Debugf("[SQL] best block is %s at height %d", hash, height)

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[SetBestBlock] failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	if err = setBestBlock(ctx, txn, hash, height); err != nil {
		return err
	}

	if err = txn.Commit(); err != nil {
		return errors.NewStorageError("[SetBestBlock] failed to commit", err)
	}

	return nil
}

func setBestBlock(ctx context.Context, txn *usql.Tx, hash chainhash.Hash, height uint32) error {
	q := `
		INSERT INTO best_block (id, block_hash, height) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET block_hash = excluded.block_hash, height = excluded.height
	`

	if _, err := txn.ExecContext(ctx, q, hash[:], int64(height)); err != nil {
		return errors.NewStorageError("failed to write best block %s", hash, err)
	}

	return nil
}
