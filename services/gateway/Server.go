// Package gateway serves the sidechain node over gRPC. It is the only entry point of the
// node: transactions are submitted to the validator, BMM calls go to the coordinator and
// balance queries are answered from the UTXO store.
package gateway

import (
	"context"
	"net/http"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/gateway/gateway_api"
	"github.com/bitnames/bitnames/services/validator"
	"github.com/bitnames/bitnames/settings"
	utxostore "github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util"
	"github.com/bitnames/bitnames/util/health"
	"github.com/bitnames/bitnames/util/tracing"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// BmmCoordinator runs blind merged mining attempts.
type BmmCoordinator interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	AttemptBmm(ctx context.Context, amount uint64) error
	ConfirmBmm(ctx context.Context) bool
}

type Server struct {
	logger       ulogger.Logger
	settings     *settings.Settings
	validator    validator.Interface
	bmm          BmmCoordinator
	utxoStore    utxostore.Store
	limiter      *rate.Limiter
	grpcServer   *grpc.Server
	healthServer *grpchealth.Server
}

func New(logger ulogger.Logger, tSettings *settings.Settings, validatorClient validator.Interface, bmm BmmCoordinator,
	utxoStore utxostore.Store) *Server {
	initPrometheusMetrics()

	return &Server{
		logger:    logger,
		settings:  tSettings,
		validator: validatorClient,
		bmm:       bmm,
		utxoStore: utxoStore,
	}
}

func (s *Server) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "Validator", Check: s.validator.Health},
		{Name: "BMM", Check: s.bmm.Health},
		{Name: "UTXOStore", Check: s.utxoStore.Health},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (s *Server) Init(_ context.Context) error {
	if s.settings.Gateway.SubmitRateLimit > 0 {
		burst := s.settings.Gateway.SubmitRateBurst
		if burst <= 0 {
			burst = 1
		}

		s.limiter = rate.NewLimiter(rate.Limit(s.settings.Gateway.SubmitRateLimit), burst)

		s.logger.Infof("[Gateway] limiting SubmitTransaction to %.1f/s, burst %d", s.settings.Gateway.SubmitRateLimit, burst)
	}

	return nil
}

// Start serves the gateway until ctx is done.
func (s *Server) Start(ctx context.Context, readyCh chan<- struct{}) error {
	server, err := s.newGRPCServer()
	if err != nil {
		return err
	}

	return util.StartGRPCServer(ctx, s.logger, "gateway", s.settings.Gateway.GRPCListenAddress, server, readyCh)
}

func (s *Server) Stop(_ context.Context) error {
	if s.healthServer != nil {
		s.healthServer.Shutdown()
	}

	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	return nil
}

func (s *Server) newGRPCServer() (*grpc.Server, error) {
	server, err := util.GetGRPCServer(&util.ConnectionOptions{
		MaxMessageSize: s.settings.Gateway.MaxMessageSize,
		SecurityLevel:  s.settings.SecurityLevelGRPC,
		CertFile:       s.settings.ServerCertFile,
		KeyFile:        s.settings.ServerKeyFile,
		CaCertFile:     s.settings.CaCertFile,
	}, []grpc.ServerOption{
		grpc.ForceServerCodec(gateway_api.Codec{}),
	}, s.settings)
	if err != nil {
		return nil, errors.NewServiceError("[Gateway] failed to create grpc server", err)
	}

	gateway_api.RegisterSidechainServer(server, s)

	s.healthServer = grpchealth.NewServer()
	s.healthServer.SetServingStatus(gateway_api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(server, s.healthServer)

	reflection.Register(server)

	s.grpcServer = server

	return server, nil
}

func (s *Server) SubmitTransaction(ctx context.Context, req *gateway_api.SubmitTransactionRequest) (resp *gateway_api.SubmitTransactionResponse, err error) {
	ctx, _, deferFn := tracing.Tracer("gateway").Start(ctx, "SubmitTransaction",
		tracing.WithHistogram(prometheusGatewaySubmitTransaction),
	)
	defer func() {
		deferFn(err)
	}()

	if s.limiter != nil && !s.limiter.Allow() {
		prometheusGatewayRateLimited.Inc()
		return nil, errors.WrapGRPC(errors.NewThresholdExceededError("[Gateway] too many transactions, try again later"))
	}

	prometheusGatewayTransactionSize.Observe(float64(len(req.Transaction)))

	result, err := s.validator.Validate(ctx, req.Transaction)
	if err != nil {
		s.logger.Errorf("[Gateway] failed to validate transaction: %v", err)
		return nil, errors.WrapGRPC(err)
	}

	if !result.Valid {
		return &gateway_api.SubmitTransactionResponse{Valid: false}, nil
	}

	return &gateway_api.SubmitTransactionResponse{Valid: true, Fee: result.Fee}, nil
}

func (s *Server) AttemptBmm(ctx context.Context, req *gateway_api.AttemptBmmRequest) (resp *gateway_api.AttemptBmmResponse, err error) {
	ctx, _, deferFn := tracing.Tracer("gateway").Start(ctx, "AttemptBmm",
		tracing.WithHistogram(prometheusGatewayAttemptBmm),
	)
	defer func() {
		deferFn(err)
	}()

	if err = s.bmm.AttemptBmm(ctx, req.Amount); err != nil {
		return nil, errors.WrapGRPC(err)
	}

	return &gateway_api.AttemptBmmResponse{}, nil
}

func (s *Server) ConfirmBmm(ctx context.Context, _ *gateway_api.ConfirmBmmRequest) (*gateway_api.ConfirmBmmResponse, error) {
	ctx, _, deferFn := tracing.Tracer("gateway").Start(ctx, "ConfirmBmm",
		tracing.WithHistogram(prometheusGatewayConfirmBmm),
	)
	defer deferFn()

	return &gateway_api.ConfirmBmmResponse{Connected: s.bmm.ConfirmBmm(ctx)}, nil
}

func (s *Server) GetUtxosByAddresses(ctx context.Context, req *gateway_api.GetUtxosByAddressesRequest) (resp *gateway_api.GetUtxosByAddressesResponse, err error) {
	ctx, _, deferFn := tracing.Tracer("gateway").Start(ctx, "GetUtxosByAddresses",
		tracing.WithHistogram(prometheusGatewayGetUtxosByAddresses),
	)
	defer func() {
		deferFn(err)
	}()

	addresses := make([]model.Address, 0, len(req.Addresses))

	for i, b := range req.Addresses {
		address, err := model.NewAddressFromBytes(b)
		if err != nil {
			return nil, errors.WrapGRPC(errors.NewDecodeError("[Gateway] invalid address at index %d", i, err))
		}

		addresses = append(addresses, address)
	}

	utxos, err := s.utxoStore.GetByAddresses(ctx, addresses)
	if err != nil {
		return nil, errors.WrapGRPC(err)
	}

	resp = &gateway_api.GetUtxosByAddressesResponse{
		Utxos: make([][]byte, 0, len(utxos)),
	}

	for _, utxo := range utxos {
		resp.Utxos = append(resp.Utxos, utxo.Bytes())
	}

	return resp, nil
}
