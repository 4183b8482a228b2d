package mainchain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/mock"
)

type Mock struct {
	mock.Mock
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	args := m.Called(ctx, checkLiveness)

	if args.Error(2) != nil {
		return 0, "", args.Error(2)
	}

	return args.Int(0), args.String(1), args.Error(2)
}

func (m *Mock) BroadcastCommitment(ctx context.Context, commitment *Commitment) error {
	args := m.Called(ctx, commitment)

	return args.Error(0)
}

func (m *Mock) IsCommitmentIncluded(ctx context.Context, criticalHash chainhash.Hash) (bool, error) {
	args := m.Called(ctx, criticalHash)

	if args.Error(1) != nil {
		return false, args.Error(1)
	}

	return args.Bool(0), nil
}
