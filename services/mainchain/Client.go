package mainchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/retry"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const satoshisPerCoin = 1e8

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
}

// RPCError is an error reported by the mainchain node itself.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RPCClient is a JSON-RPC 1.0 client for a drivechain mainchain node.
type RPCClient struct {
	logger   ulogger.Logger
	settings *settings.Settings
	url      string
	client   *http.Client
}

func NewRPCClient(logger ulogger.Logger, tSettings *settings.Settings) (*RPCClient, error) {
	initPrometheusMetrics()

	if tSettings.Mainchain.RPCURL == nil {
		return nil, errors.NewConfigurationError("mainchain_rpcURL is not set")
	}

	return &RPCClient{
		logger:   logger,
		settings: tSettings,
		url:      tSettings.Mainchain.RPCURL.String(),
		client: &http.Client{
			Timeout: tSettings.Mainchain.RequestTimeout,
		},
	}, nil
}

func (c *RPCClient) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	var height uint64
	if err := c.call(ctx, "getblockcount", &height); err != nil {
		return http.StatusServiceUnavailable, "mainchain node unreachable", err
	}

	return http.StatusOK, fmt.Sprintf("mainchain height %d", height), nil
}

func (c *RPCClient) BroadcastCommitment(ctx context.Context, commitment *Commitment) error {
	ctx, _, deferFn := tracing.Tracer("mainchain").Start(ctx, "BroadcastCommitment")
	defer deferFn()

	var height uint64
	if err := c.call(ctx, "getblockcount", &height); err != nil {
		return err
	}

	var bestHash string
	if err := c.call(ctx, "getbestblockhash", &bestHash); err != nil {
		return err
	}

	if len(bestHash) < 8 {
		return errors.NewNetworkInvalidResponseError("invalid best block hash %q", bestHash)
	}

	var result struct {
		TxID struct {
			TxID string `json:"txid"`
		} `json:"txid"`
	}

	// the commitment is valid for the next mainchain block, prevbytes are the leading bytes of the tip
	err := c.call(ctx, "createbmmcriticaldatatx", &result,
		float64(commitment.Amount)/satoshisPerCoin,
		height+1,
		commitment.CriticalHash.String(),
		c.settings.BMM.SidechainSlot,
		bestHash[:8],
	)
	if err != nil {
		return err
	}

	c.logger.Infof("[Mainchain] broadcast commitment %s for sidechain height %d in mainchain tx %s", commitment.CriticalHash, commitment.SideHeight, result.TxID.TxID)

	return nil
}

func (c *RPCClient) IsCommitmentIncluded(ctx context.Context, criticalHash chainhash.Hash) (bool, error) {
	ctx, _, deferFn := tracing.Tracer("mainchain").Start(ctx, "IsCommitmentIncluded")
	defer deferFn()

	var bestHash string
	if err := c.call(ctx, "getbestblockhash", &bestHash); err != nil {
		return false, err
	}

	var result struct {
		TxID string `json:"txid"`
	}

	err := c.call(ctx, "verifybmm", &result, bestHash, criticalHash.String(), c.settings.BMM.SidechainSlot)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			// verifybmm reports a missing commitment as an rpc error
			c.logger.Debugf("[Mainchain] commitment %s not in block %s: %v", criticalHash, bestHash, rpcErr)
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// call runs method with params and unmarshals the result into result. Network failures are
// retried, errors reported by the node are not.
func (c *RPCClient) call(ctx context.Context, method string, result interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      "bitnames",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.NewProcessingError("[Mainchain] failed to encode %s request", method, err)
	}

	start := time.Now()

	resp, err := retry.Retry(ctx, c.logger, func() (*rpcResponse, error) {
		return c.post(ctx, payload)
	},
		retry.WithRetryCount(c.settings.Mainchain.MaxRetries),
		retry.WithBackoffMultiplier(1),
		retry.WithBackoffDurationType(c.settings.Mainchain.RetryBackoff),
		retry.WithRetryableCheck(errors.IsRetryableError),
		retry.WithMessage("[Mainchain] "+method+" failed, retrying"),
	)

	prometheusMainchainRPCCall.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		prometheusMainchainRPCErrors.WithLabelValues(method).Inc()
		return err
	}

	if resp.Error != nil {
		prometheusMainchainRPCErrors.WithLabelValues(method).Inc()
		return errors.NewServiceError("[Mainchain] %s failed", method, resp.Error)
	}

	if result == nil {
		return nil
	}

	if err = json.Unmarshal(resp.Result, result); err != nil {
		return errors.NewNetworkInvalidResponseError("[Mainchain] failed to decode %s result", method, err)
	}

	return nil
}

func (c *RPCClient) post(ctx context.Context, payload []byte) (*rpcResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewProcessingError("[Mainchain] failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.settings.Mainchain.RPCUser, c.settings.Mainchain.RPCPassword)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError("[Mainchain] request to %s failed", c.url, err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.NewNetworkError("[Mainchain] failed to read response", err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		return nil, errors.NewNetworkInvalidResponseError("[Mainchain] rpc credentials rejected")
	}

	var resp rpcResponse

	// the node answers rpc errors with a 500 and a json body
	if err = json.Unmarshal(body, &resp); err != nil {
		if res.StatusCode >= http.StatusInternalServerError {
			return nil, errors.NewNetworkError("[Mainchain] http status %d", res.StatusCode)
		}

		return nil, errors.NewNetworkInvalidResponseError("[Mainchain] invalid response with status %d", res.StatusCode, err)
	}

	return &resp, nil
}
