package repository

import (
	"context"

	"github.com/bitnames/bitnames/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/mock"
)

type Mock struct {
	mock.Mock
}

func (m *Mock) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	args := m.Called(ctx, checkLiveness)
	return args.Int(0), args.String(1), args.Error(2)
}

func (m *Mock) GetUtxosByAddress(ctx context.Context, address model.Address) ([]*model.Utxo, error) {
	args := m.Called(ctx, address)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*model.Utxo), args.Error(1)
}

func (m *Mock) GetBitName(ctx context.Context, key chainhash.Hash) (*model.BitName, error) {
	args := m.Called(ctx, key)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.BitName), args.Error(1)
}

func (m *Mock) ListBitNames(ctx context.Context, offset, limit int) ([]model.BitName, int, error) {
	args := m.Called(ctx, offset, limit)

	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}

	return args.Get(0).([]model.BitName), args.Int(1), args.Error(2)
}

func (m *Mock) GetTip() (chainhash.Hash, uint32) {
	args := m.Called()
	return args.Get(0).(chainhash.Hash), args.Get(1).(uint32)
}
