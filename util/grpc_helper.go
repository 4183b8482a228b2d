package util

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	prometheusgolang "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultMaxMessageSize = 16 * 1024 * 1024
	defaultRetryBackoff   = 100 * time.Millisecond
)

// ConnectionOptions configures both ends of a gRPC connection.
type ConnectionOptions struct {
	MaxMessageSize int           // Max message size in bytes
	SecurityLevel  int           // 0 = insecure, 1 = secure, 2 = secure with client cert, 3 = verified client cert
	CertFile       string        // cert file if SecurityLevel > 0
	CaCertFile     string        // CA cert file if SecurityLevel > 1
	KeyFile        string        // key file if SecurityLevel > 0
	MaxRetries     int           // Max number of retries for transient errors
	RetryBackoff   time.Duration // Backoff between retries
}

var (
	prometheusRegisterServerOnce sync.Once
	prometheusRegisterClientOnce sync.Once

	prometheusMetrics = prometheus.NewServerMetrics(
		prometheus.WithServerHandlingTimeHistogram(),
	)
	prometheusClientMetrics = prometheus.NewClientMetrics(
		prometheus.WithClientHandlingTimeHistogram(),
	)
)

// GetGRPCClient creates a client connection to address. The caller closes it.
func GetGRPCClient(_ context.Context, address string, connectionOptions *ConnectionOptions, tSettings *settings.Settings, extraOpts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if address == "" {
		return nil, errors.NewInvalidArgumentError("address is required")
	}

	if connectionOptions.MaxMessageSize == 0 {
		connectionOptions.MaxMessageSize = defaultMaxMessageSize
	}

	opts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(connectionOptions.MaxMessageSize),
			grpc.MaxCallRecvMsgSize(connectionOptions.MaxMessageSize),
		),
	}

	if connectionOptions.SecurityLevel == 0 {
		connectionOptions.SecurityLevel = tSettings.SecurityLevelGRPC
	}

	tlsCredentials, err := loadTLSCredentials(connectionOptions, false)
	if err != nil {
		return nil, err
	}

	opts = append(opts, grpc.WithTransportCredentials(tlsCredentials))

	unaryClientInterceptors := make([]grpc.UnaryClientInterceptor, 0, 2)

	if tSettings.TracingEnabled {
		opts = append(opts, grpc.WithStatsHandler(otelgrpc.NewClientHandler()))
	}

	if tSettings.UsePrometheusGRPCMetrics {
		unaryClientInterceptors = append(unaryClientInterceptors, prometheusClientMetrics.UnaryClientInterceptor())

		prometheusRegisterClientOnce.Do(func() {
			prometheusgolang.MustRegister(prometheusClientMetrics)
		})
	}

	if connectionOptions.MaxRetries > 0 {
		if connectionOptions.RetryBackoff == 0 {
			connectionOptions.RetryBackoff = defaultRetryBackoff
		}

		unaryClientInterceptors = append(unaryClientInterceptors, retryInterceptor(connectionOptions.MaxRetries, connectionOptions.RetryBackoff))
	}

	if len(unaryClientInterceptors) > 0 {
		opts = append(opts, grpc.WithChainUnaryInterceptor(unaryClientInterceptors...))
	}

	opts = append(opts, extraOpts...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, errors.NewServiceError("error dialing grpc service at %s", address, err)
	}

	return conn, nil
}

// GetGRPCServer creates a server with message limits, TLS, tracing and metrics applied from settings.
func GetGRPCServer(connectionOptions *ConnectionOptions, opts []grpc.ServerOption, tSettings *settings.Settings) (*grpc.Server, error) {
	if connectionOptions.MaxMessageSize == 0 {
		connectionOptions.MaxMessageSize = defaultMaxMessageSize
	}

	opts = append(opts,
		grpc.MaxSendMsgSize(connectionOptions.MaxMessageSize),
		grpc.MaxRecvMsgSize(connectionOptions.MaxMessageSize),
	)

	if tSettings.TracingEnabled {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}

	if tSettings.UsePrometheusGRPCMetrics {
		opts = append(opts, grpc.ChainUnaryInterceptor(prometheusMetrics.UnaryServerInterceptor()))
	}

	if connectionOptions.SecurityLevel == 0 {
		connectionOptions.SecurityLevel = tSettings.SecurityLevelGRPC
	}

	tlsCredentials, err := loadTLSCredentials(connectionOptions, true)
	if err != nil {
		return nil, err
	}

	opts = append(opts, grpc.Creds(tlsCredentials))

	server := grpc.NewServer(opts...)

	if tSettings.UsePrometheusGRPCMetrics {
		prometheusMetrics.InitializeMetrics(server)

		prometheusRegisterServerOnce.Do(func() {
			prometheusgolang.MustRegister(prometheusMetrics)
		})
	}

	return server, nil
}

// StartGRPCServer listens on address and serves until ctx is done, then stops the server
// gracefully. ready is closed once the listener is bound.
func StartGRPCServer(ctx context.Context, logger ulogger.Logger, serviceName string, address string, server *grpc.Server, ready chan<- struct{}) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return errors.NewServiceError("[%s] GRPC server failed to listen on %s", serviceName, address, err)
	}

	logger.Infof("[%s] GRPC service listening on %s", serviceName, address)

	if ready != nil {
		close(ready)
	}

	go func() {
		<-ctx.Done()
		logger.Infof("[%s] GRPC service shutting down", serviceName)
		server.GracefulStop()
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.NewServiceError("[%s] GRPC server failed", serviceName, err)
	}

	logger.Infof("[%s] GRPC service shut down", serviceName)

	return nil
}

// retryInterceptor retries calls failing with Unavailable or DeadlineExceeded.
func retryInterceptor(maxRetries int, retryBackoff time.Duration) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		var err error

		for i := 0; i < maxRetries; i++ {
			err = invoker(ctx, method, req, reply, cc, opts...)
			if err == nil {
				return nil
			}

			if code := status.Code(err); code != codes.Unavailable && code != codes.DeadlineExceeded {
				break
			}

			select {
			case <-ctx.Done():
				return err
			case <-time.After(retryBackoff):
			}
		}

		return err
	}
}

func loadTLSCredentials(connectionData *ConnectionOptions, isServer bool) (credentials.TransportCredentials, error) {
	switch connectionData.SecurityLevel {
	case 0:
		return insecure.NewCredentials(), nil

	case 1:
		if !isServer {
			return credentials.NewTLS(&tls.Config{
				//nolint:gosec // G402: TLS InsecureSkipVerify set true. (gosec)
				InsecureSkipVerify: true,
			}), nil
		}

		cert, err := tls.LoadX509KeyPair(connectionData.CertFile, connectionData.KeyFile)
		if err != nil {
			return nil, errors.NewConfigurationError("failed to read key pair", err)
		}

		return credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			ClientAuth:   tls.NoClientCert,
			MinVersion:   tls.VersionTLS12,
		}), nil

	case 2, 3:
		cert, err := tls.LoadX509KeyPair(connectionData.CertFile, connectionData.KeyFile)
		if err != nil {
			return nil, errors.NewConfigurationError("failed to read key pair", err)
		}

		if isServer && connectionData.SecurityLevel == 2 {
			return credentials.NewTLS(&tls.Config{
				Certificates: []tls.Certificate{cert},
				ClientAuth:   tls.RequireAnyClientCert,
				MinVersion:   tls.VersionTLS12,
			}), nil
		}

		caCert, err := os.ReadFile(connectionData.CaCertFile)
		if err != nil {
			return nil, errors.NewConfigurationError("failed to read ca cert file", err)
		}

		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)

		if isServer {
			return credentials.NewTLS(&tls.Config{
				Certificates: []tls.Certificate{cert},
				ClientAuth:   tls.RequireAndVerifyClientCert,
				ClientCAs:    caCertPool,
				MinVersion:   tls.VersionTLS12,
			}), nil
		}

		return credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			//nolint:gosec // G402: TLS InsecureSkipVerify set true. (gosec)
			InsecureSkipVerify: true,
			RootCAs:            caCertPool,
		}), nil
	}

	return nil, errors.NewConfigurationError("securityLevel must be 0, 1, 2 or 3")
}
