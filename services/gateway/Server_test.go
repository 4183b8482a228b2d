package gateway

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/blockassembly"
	"github.com/bitnames/bitnames/services/bmm"
	"github.com/bitnames/bitnames/services/gateway/gateway_api"
	"github.com/bitnames/bitnames/services/mainchain"
	"github.com/bitnames/bitnames/services/state"
	"github.com/bitnames/bitnames/services/validator"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo/memory"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var (
	addressA = model.NewTestAddress(0xaa)
	addressB = model.NewTestAddress(0xbb)
)

// rawRequest sends arbitrary bytes as a request body.
type rawRequest []byte

func (r rawRequest) Marshal() ([]byte, error) {
	return r, nil
}

func (r rawRequest) Unmarshal([]byte) error {
	return nil
}

type fixture struct {
	client      *Client
	conn        *grpc.ClientConn
	coordinator *bmm.Coordinator
	mainchain   *mainchain.Mock
	store       *memory.Memory
	funding     *model.Transaction
}

func setup(t *testing.T, configure ...func(*settings.Settings)) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	tSettings := &settings.Settings{
		Validator: settings.ValidatorSettings{
			RejectCacheTTL:  time.Minute,
			RejectCacheSize: 100,
		},
		BlockAssembly: settings.BlockAssemblySettings{MaxBlockTransactions: 100},
		BMM: settings.BMMSettings{
			MinimumAmount:    1000,
			BroadcastTimeout: time.Second,
			ConfirmTimeout:   time.Minute,
		},
		Mainchain: settings.MainchainSettings{RequestTimeout: time.Second},
	}

	for _, fn := range configure {
		fn(tSettings)
	}

	logger := ulogger.TestLogger{}
	store := memory.New(logger)
	st := state.New(logger, store)
	require.NoError(t, st.Init(ctx))
	ba := blockassembly.New(logger, tSettings, st)

	funding := model.NewTestFundingTransaction(1, addressA, 100)
	_, err := store.Create(ctx, funding, 0)
	require.NoError(t, err)

	mc := mainchain.NewMock()
	coordinator := bmm.New(ctx, logger, tSettings, ba, st, mc)
	v := validator.New(ctx, logger, tSettings, store, ba, st)

	server := New(logger, tSettings, v, coordinator, store)
	require.NoError(t, server.Init(ctx))

	grpcServer, err := server.newGRPCServer()
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)

	go func() {
		_ = grpcServer.Serve(lis)
	}()

	t.Cleanup(func() {
		_ = server.Stop(context.Background())
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client, err := NewClient(ctx, logger, tSettings, conn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return &fixture{
		client:      client,
		conn:        conn,
		coordinator: coordinator,
		mainchain:   mc,
		store:       store,
		funding:     funding,
	}
}

func TestSubmitTransaction(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	outpointA := model.NewOutPoint(f.funding.TxID(), 0)

	result, err := f.client.SubmitTransaction(ctx, model.NewTestSpendingTransaction([]model.OutPoint{outpointA}, addressB, 90).Bytes())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, uint64(10), result.Fee)

	// a double spend is an invalid transaction, not an error
	result, err = f.client.SubmitTransaction(ctx, model.NewTestSpendingTransaction([]model.OutPoint{outpointA}, addressB, 80).Bytes())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Zero(t, result.Fee)

	result, err = f.client.SubmitTransaction(ctx, []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestUndecodableRequest(t *testing.T) {
	f := setup(t)

	// field 1 claims 5 bytes but only one follows
	err := f.conn.Invoke(context.Background(), gateway_api.SubmitTransactionFullMethodName,
		rawRequest{0x0a, 0x05, 0x01}, &gateway_api.SubmitTransactionResponse{},
		grpc.ForceCodec(gateway_api.Codec{}),
	)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.True(t, errors.Is(errors.UnwrapGRPC(err), errors.ErrDecode))
}

func TestSubmitTransactionRateLimited(t *testing.T) {
	ctx := context.Background()
	f := setup(t, func(s *settings.Settings) {
		s.Gateway.SubmitRateLimit = 0.001
		s.Gateway.SubmitRateBurst = 1
	})

	_, err := f.client.SubmitTransaction(ctx, []byte{0x01})
	require.NoError(t, err)

	_, err = f.client.SubmitTransaction(ctx, []byte{0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrThresholdExceeded))
}

func TestAttemptBmm(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient amount", func(t *testing.T) {
		f := setup(t)

		err := f.client.AttemptBmm(ctx, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBmmInsufficientAmount))
	})

	t.Run("attempt in progress", func(t *testing.T) {
		f := setup(t)

		f.mainchain.On("BroadcastCommitment", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.client.AttemptBmm(ctx, 5000))

		err := f.client.AttemptBmm(ctx, 5000)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBmmAttemptInProgress))
	})
}

func TestBmmRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	outpointA := model.NewOutPoint(f.funding.TxID(), 0)

	result, err := f.client.SubmitTransaction(ctx, model.NewTestSpendingTransaction([]model.OutPoint{outpointA}, addressB, 90).Bytes())
	require.NoError(t, err)
	require.True(t, result.Valid)

	f.mainchain.On("BroadcastCommitment", mock.Anything, mock.Anything).Return(nil)
	f.mainchain.On("IsCommitmentIncluded", mock.Anything, mock.Anything).Return(true, nil)

	connected, err := f.client.ConfirmBmm(ctx)
	require.NoError(t, err)
	assert.False(t, connected)

	require.NoError(t, f.client.AttemptBmm(ctx, 5000))

	require.Eventually(t, func() bool {
		return f.coordinator.State() == bmm.StateBroadcast
	}, time.Second, time.Millisecond)

	connected, err = f.client.ConfirmBmm(ctx)
	require.NoError(t, err)
	assert.True(t, connected)

	utxos, err := f.client.GetUtxosByAddresses(ctx, []model.Address{addressB})
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, uint64(90), utxos[0].Output.Value)
}

func TestGetUtxosByAddresses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	utxos, err := f.client.GetUtxosByAddresses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, utxos)

	first, err := f.client.GetUtxosByAddresses(ctx, []model.Address{addressA, addressB})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, uint64(100), first[0].Output.Value)

	second, err := f.client.GetUtxosByAddresses(ctx, []model.Address{addressA, addressB})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sidechain := gateway_api.NewSidechainClient(f.conn)

	_, err = sidechain.GetUtxosByAddresses(ctx, &gateway_api.GetUtxosByAddressesRequest{
		Addresses: [][]byte{addressA.Bytes(), {0x01, 0x02, 0x03}},
	})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.True(t, errors.Is(errors.UnwrapGRPC(err), errors.ErrDecode))
}

func TestHealth(t *testing.T) {
	f := setup(t)

	status, _, err := f.client.Health(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestReflectionListsSidechain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := setup(t)

	stream, err := reflectionpb.NewServerReflectionClient(f.conn).ServerReflectionInfo(ctx)
	require.NoError(t, err)

	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}))

	resp, err := stream.Recv()
	require.NoError(t, err)

	names := make([]string, 0)
	for _, service := range resp.GetListServicesResponse().GetService() {
		names = append(names, service.GetName())
	}

	assert.Contains(t, names, gateway_api.ServiceName)

	// the service can be described, not only listed
	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: gateway_api.ServiceName},
	}))

	resp, err = stream.Recv()
	require.NoError(t, err)
	assert.NotEmpty(t, resp.GetFileDescriptorResponse().GetFileDescriptorProto())
	assert.Nil(t, resp.GetErrorResponse())

	require.NoError(t, stream.CloseSend())
}
