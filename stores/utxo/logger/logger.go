// Package logger decorates a utxo.Store, logging every call with its result and caller.
package logger

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Store struct {
	logger ulogger.Logger
	store  utxo.Store
}

func New(logger ulogger.Logger, store utxo.Store) utxo.Store {
	return &Store{
		logger: logger,
		store:  store,
	}
}

func caller() string {
	var callers []string

	depth := 3

	for i := 0; i < depth; i++ {
		pc, file, line, ok := runtime.Caller(2 + i)
		if !ok {
			break
		}

		// keep the last two path elements, the rest is GOPATH noise
		folders := strings.Split(file, string(filepath.Separator))
		if len(folders) > 2 {
			folders = folders[len(folders)-2:]
		}

		file = filepath.Join(folders...)

		funcName := runtime.FuncForPC(pc).Name()
		funcPaths := strings.Split(funcName, "/")
		funcName = funcPaths[len(funcPaths)-1]

		callers = append(callers, fmt.Sprintf("called from %s: %s:%d", funcName, file, line))
	}

	return strings.Join(callers, ",")
}

func outpointsString(outpoints []model.OutPoint) string {
	s := make([]string, len(outpoints))
	for i, o := range outpoints {
		s[i] = o.String()
	}

	return strings.Join(s, ", ")
}

func (s *Store) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	s.logger.Infof("[UTXOStore][logger][Health] : %s", caller())
	return s.store.Health(ctx, checkLiveness)
}

func (s *Store) Create(ctx context.Context, tx *model.Transaction, blockHeight uint32) ([]*model.Utxo, error) {
	utxos, err := s.store.Create(ctx, tx, blockHeight)
	s.logger.Infof("[UTXOStore][logger][Create] tx %s, outputs %d, blockHeight %d, err %v : %s", tx.TxID(), len(tx.Outputs), blockHeight, err, caller())

	return utxos, err
}

func (s *Store) Get(ctx context.Context, outpoint model.OutPoint) (*utxo.Response, error) {
	resp, err := s.store.Get(ctx, outpoint)

	spent := false
	if resp != nil {
		spent = resp.IsSpent()
	}

	s.logger.Infof("[UTXOStore][logger][Get] outpoint %s spent %t err %v : %s", outpoint, spent, err, caller())

	return resp, err
}

func (s *Store) Spend(ctx context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error {
	err := s.store.Spend(ctx, outpoints, spendingTxID)
	s.logger.Infof("[UTXOStore][logger][Spend] outpoints [%s] spendingTxID %s err %v : %s", outpointsString(outpoints), spendingTxID, err, caller())

	return err
}

func (s *Store) UnSpend(ctx context.Context, outpoints []model.OutPoint, spendingTxID chainhash.Hash) error {
	err := s.store.UnSpend(ctx, outpoints, spendingTxID)
	s.logger.Infof("[UTXOStore][logger][UnSpend] outpoints [%s] spendingTxID %s err %v : %s", outpointsString(outpoints), spendingTxID, err, caller())

	return err
}

func (s *Store) Delete(ctx context.Context, outpoints []model.OutPoint) error {
	err := s.store.Delete(ctx, outpoints)
	s.logger.Infof("[UTXOStore][logger][Delete] outpoints [%s] err %v : %s", outpointsString(outpoints), err, caller())

	return err
}

func (s *Store) GetByAddresses(ctx context.Context, addresses []model.Address) ([]*model.Utxo, error) {
	utxos, err := s.store.GetByAddresses(ctx, addresses)
	s.logger.Infof("[UTXOStore][logger][GetByAddresses] addresses %d utxos %d err %v : %s", len(addresses), len(utxos), err, caller())

	return utxos, err
}

func (s *Store) GetBitNames(ctx context.Context, keys []chainhash.Hash) (map[chainhash.Hash]chainhash.Hash, error) {
	found, err := s.store.GetBitNames(ctx, keys)
	s.logger.Infof("[UTXOStore][logger][GetBitNames] keys %d found %d err %v : %s", len(keys), len(found), err, caller())

	return found, err
}

func (s *Store) ListBitNames(ctx context.Context) ([]model.BitName, error) {
	names, err := s.store.ListBitNames(ctx)
	s.logger.Infof("[UTXOStore][logger][ListBitNames] names %d err %v : %s", len(names), err, caller())

	return names, err
}

func (s *Store) SetBitNames(ctx context.Context, names []model.BitName) error {
	err := s.store.SetBitNames(ctx, names)
	s.logger.Infof("[UTXOStore][logger][SetBitNames] names %d err %v : %s", len(names), err, caller())

	return err
}

func (s *Store) ListBitNamesPage(ctx context.Context, offset, limit int) ([]model.BitName, int, error) {
	names, total, err := s.store.ListBitNamesPage(ctx, offset, limit)
	s.logger.Infof("[UTXOStore][logger][ListBitNamesPage] offset %d limit %d names %d total %d err %v : %s", offset, limit, len(names), total, err, caller())

	return names, total, err
}

func (s *Store) ConnectBlock(ctx context.Context, block *model.Block) error {
	err := s.store.ConnectBlock(ctx, block)
	s.logger.Infof("[UTXOStore][logger][ConnectBlock] block %s height %d txs %d err %v : %s", block.Hash(), block.Header.Height, len(block.Body.Transactions), err, caller())

	return err
}

func (s *Store) GetBestBlock(ctx context.Context) (chainhash.Hash, uint32, error) {
	hash, height, err := s.store.GetBestBlock(ctx)
	s.logger.Infof("[UTXOStore][logger][GetBestBlock] %s %d err %v : %s", hash, height, err, caller())

	return hash, height, err
}

func (s *Store) SetBestBlock(ctx context.Context, hash chainhash.Hash, height uint32) error {
	err := s.store.SetBestBlock(ctx, hash, height)
	s.logger.Infof("[UTXOStore][logger][SetBestBlock] %s %d err %v : %s", hash, height, err, caller())

	return err
}
