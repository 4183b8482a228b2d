package gateway

import (
	"context"
	"net/http"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/gateway/gateway_api"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util"
	"github.com/bitnames/bitnames/util/health"
	"google.golang.org/grpc"
)

// SubmitResult is the answer to a submitted transaction.
type SubmitResult struct {
	Valid bool
	Fee   uint64
}

type Client struct {
	logger ulogger.Logger
	conn   *grpc.ClientConn
	client gateway_api.SidechainClient
}

// NewClient connects to the gateway at tSettings.Gateway.GRPCAddress, or uses conn when given.
func NewClient(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, conn ...*grpc.ClientConn) (*Client, error) {
	var useConn *grpc.ClientConn

	if len(conn) > 0 {
		useConn = conn[0]
	} else {
		localConn, err := util.GetGRPCClient(ctx, tSettings.Gateway.GRPCAddress, &util.ConnectionOptions{
			MaxMessageSize: tSettings.Gateway.MaxMessageSize,
			SecurityLevel:  tSettings.SecurityLevelGRPC,
			CertFile:       tSettings.ServerCertFile,
			CaCertFile:     tSettings.CaCertFile,
			KeyFile:        tSettings.ServerKeyFile,
			MaxRetries:     tSettings.Gateway.GRPCMaxRetries,
			RetryBackoff:   tSettings.Gateway.GRPCRetryBackoff,
		}, tSettings)
		if err != nil {
			return nil, err
		}

		useConn = localConn
	}

	return &Client{
		logger: logger,
		conn:   useConn,
		client: gateway_api.NewSidechainClient(useConn),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	return health.CheckGRPCHealth(c.conn, gateway_api.ServiceName)(ctx, checkLiveness)
}

func (c *Client) SubmitTransaction(ctx context.Context, txBytes []byte) (*SubmitResult, error) {
	resp, err := c.client.SubmitTransaction(ctx, &gateway_api.SubmitTransactionRequest{
		Transaction: txBytes,
	})
	if err != nil {
		return nil, unwrap(err)
	}

	return &SubmitResult{Valid: resp.Valid, Fee: resp.Fee}, nil
}

func (c *Client) AttemptBmm(ctx context.Context, amount uint64) error {
	if _, err := c.client.AttemptBmm(ctx, &gateway_api.AttemptBmmRequest{Amount: amount}); err != nil {
		return unwrap(err)
	}

	return nil
}

func (c *Client) ConfirmBmm(ctx context.Context) (bool, error) {
	resp, err := c.client.ConfirmBmm(ctx, &gateway_api.ConfirmBmmRequest{})
	if err != nil {
		return false, unwrap(err)
	}

	return resp.Connected, nil
}

// GetUtxosByAddresses returns the decoded unspent outputs owned by addresses.
func (c *Client) GetUtxosByAddresses(ctx context.Context, addresses []model.Address) ([]*model.Utxo, error) {
	req := &gateway_api.GetUtxosByAddressesRequest{
		Addresses: make([][]byte, 0, len(addresses)),
	}

	for _, address := range addresses {
		req.Addresses = append(req.Addresses, address.Bytes())
	}

	resp, err := c.client.GetUtxosByAddresses(ctx, req)
	if err != nil {
		return nil, unwrap(err)
	}

	utxos := make([]*model.Utxo, 0, len(resp.Utxos))

	for _, b := range resp.Utxos {
		utxo, err := model.NewUtxoFromBytes(b)
		if err != nil {
			return nil, errors.NewDecodeError("[Gateway] invalid utxo in response", err)
		}

		utxos = append(utxos, utxo)
	}

	return utxos, nil
}

func unwrap(err error) error {
	return errors.UnwrapGRPC(err)
}
