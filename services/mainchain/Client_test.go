package mainchain

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rpcURL   = "http://localhost:18443"
	bestHash = "0000000000000000000000000000000000000000000000000000000000abcdef"
)

var criticalHash = chainhash.HashH([]byte("block"))

func newTestClient(t *testing.T) *RPCClient {
	t.Helper()

	u, err := url.Parse(rpcURL)
	require.NoError(t, err)

	client, err := NewRPCClient(ulogger.TestLogger{}, &settings.Settings{
		BMM: settings.BMMSettings{SidechainSlot: 2},
		Mainchain: settings.MainchainSettings{
			RPCURL:         u,
			RPCUser:        "user",
			RPCPassword:    "password",
			RequestTimeout: time.Second,
			MaxRetries:     3,
			RetryBackoff:   time.Millisecond,
		},
	})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(client.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

// registerNode answers rpc calls by method name.
func registerNode(t *testing.T, handlers map[string]func(params []interface{}) (int, interface{})) {
	t.Helper()

	httpmock.RegisterResponder(http.MethodPost, rpcURL, func(req *http.Request) (*http.Response, error) {
		user, password, ok := req.BasicAuth()
		if !ok || user != "user" || password != "password" {
			return httpmock.NewStringResponse(http.StatusUnauthorized, ""), nil
		}

		var rpcReq rpcRequest
		if err := json.NewDecoder(req.Body).Decode(&rpcReq); err != nil {
			return nil, err
		}

		handler, ok := handlers[rpcReq.Method]
		if !ok {
			return httpmock.NewJsonResponse(http.StatusInternalServerError, map[string]interface{}{
				"result": nil,
				"error":  map[string]interface{}{"code": -32601, "message": "Method not found"},
			})
		}

		status, body := handler(rpcReq.Params)

		return httpmock.NewJsonResponse(status, body)
	})
}

func result(v interface{}) (int, interface{}) {
	return http.StatusOK, map[string]interface{}{"result": v, "error": nil}
}

func rpcFailure(code int, message string) (int, interface{}) {
	return http.StatusInternalServerError, map[string]interface{}{
		"result": nil,
		"error":  map[string]interface{}{"code": code, "message": message},
	}
}

func TestBroadcastCommitment(t *testing.T) {
	client := newTestClient(t)

	var gotParams []interface{}

	registerNode(t, map[string]func([]interface{}) (int, interface{}){
		"getblockcount":    func([]interface{}) (int, interface{}) { return result(100) },
		"getbestblockhash": func([]interface{}) (int, interface{}) { return result(bestHash) },
		"createbmmcriticaldatatx": func(params []interface{}) (int, interface{}) {
			gotParams = params
			return result(map[string]interface{}{"txid": map[string]interface{}{"txid": "deadbeef"}})
		},
	})

	err := client.BroadcastCommitment(context.Background(), &Commitment{
		CriticalHash: criticalHash,
		Amount:       50_000,
		SideHeight:   1,
	})
	require.NoError(t, err)

	require.Len(t, gotParams, 5)
	assert.InDelta(t, 0.0005, gotParams[0], 1e-12)
	assert.Equal(t, float64(101), gotParams[1])
	assert.Equal(t, criticalHash.String(), gotParams[2])
	assert.Equal(t, float64(2), gotParams[3])
	assert.Equal(t, bestHash[:8], gotParams[4])
}

func TestBroadcastCommitmentRejected(t *testing.T) {
	client := newTestClient(t)

	registerNode(t, map[string]func([]interface{}) (int, interface{}){
		"getblockcount":    func([]interface{}) (int, interface{}) { return result(100) },
		"getbestblockhash": func([]interface{}) (int, interface{}) { return result(bestHash) },
		"createbmmcriticaldatatx": func([]interface{}) (int, interface{}) {
			return rpcFailure(-6, "Insufficient funds")
		},
	})

	err := client.BroadcastCommitment(context.Background(), &Commitment{CriticalHash: criticalHash, Amount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceError))

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -6, rpcErr.Code)

	// getblockcount, getbestblockhash and a single createbmmcriticaldatatx, rpc errors are not retried
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestIsCommitmentIncluded(t *testing.T) {
	t.Run("included", func(t *testing.T) {
		client := newTestClient(t)

		registerNode(t, map[string]func([]interface{}) (int, interface{}){
			"getbestblockhash": func([]interface{}) (int, interface{}) { return result(bestHash) },
			"verifybmm": func(params []interface{}) (int, interface{}) {
				if params[0] != bestHash || params[1] != criticalHash.String() {
					return rpcFailure(-8, "unexpected params")
				}

				return result(map[string]interface{}{"txid": "deadbeef"})
			},
		})

		included, err := client.IsCommitmentIncluded(context.Background(), criticalHash)
		require.NoError(t, err)
		assert.True(t, included)
	})

	t.Run("not included", func(t *testing.T) {
		client := newTestClient(t)

		registerNode(t, map[string]func([]interface{}) (int, interface{}){
			"getbestblockhash": func([]interface{}) (int, interface{}) { return result(bestHash) },
			"verifybmm": func([]interface{}) (int, interface{}) {
				return rpcFailure(-8, "h* not found in block")
			},
		})

		included, err := client.IsCommitmentIncluded(context.Background(), criticalHash)
		require.NoError(t, err)
		assert.False(t, included)
	})

	t.Run("node down", func(t *testing.T) {
		client := newTestClient(t)

		httpmock.RegisterResponder(http.MethodPost, rpcURL, httpmock.NewStringResponder(http.StatusBadGateway, "bad gateway"))

		_, err := client.IsCommitmentIncluded(context.Background(), criticalHash)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNetwork))

		// network failures are retried
		assert.Equal(t, 3, httpmock.GetTotalCallCount())
	})
}

func TestBadCredentials(t *testing.T) {
	client := newTestClient(t)
	client.settings.Mainchain.RPCPassword = "wrong"

	registerNode(t, map[string]func([]interface{}) (int, interface{}){})

	_, err := client.IsCommitmentIncluded(context.Background(), criticalHash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNetworkInvalidResponse))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHealth(t *testing.T) {
	client := newTestClient(t)

	status, _, err := client.Health(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	registerNode(t, map[string]func([]interface{}) (int, interface{}){
		"getblockcount": func([]interface{}) (int, interface{}) { return result(100) },
	})

	status, msg, err := client.Health(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, msg, "100")
}

func TestNewRPCClientWithoutURL(t *testing.T) {
	_, err := NewRPCClient(ulogger.TestLogger{}, &settings.Settings{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}
