package validator

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	args := m.Called(ctx, checkLiveness)

	return args.Int(0), args.String(1), args.Error(2)
}

func (m *MockValidator) Validate(ctx context.Context, txBytes []byte) (*Result, error) {
	args := m.Called(ctx, txBytes)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*Result), nil
}
