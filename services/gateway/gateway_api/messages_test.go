package gateway_api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestSubmitTransactionResponseWire(t *testing.T) {
	b, err := (&SubmitTransactionResponse{Valid: true, Fee: 300}).Marshal()
	require.NoError(t, err)

	// field 1 varint 1, field 2 varint 300
	assert.Equal(t, []byte{0x08, 0x01, 0x10, 0xac, 0x02}, b)

	// an invalid response has no fields
	b, err = (&SubmitTransactionResponse{}).Marshal()
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestGetUtxosByAddressesRequestKeepsEmptyEntries(t *testing.T) {
	in := &GetUtxosByAddressesRequest{Addresses: [][]byte{{0x01, 0x02}, {}, {0x03}}}

	b, err := in.Marshal()
	require.NoError(t, err)

	out := &GetUtxosByAddressesRequest{}
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, in.Addresses, out.Addresses)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	b := protowire.AppendTag(nil, 7, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 5000)

	m := &AttemptBmmRequest{}
	require.NoError(t, m.Unmarshal(b))
	assert.Equal(t, uint64(5000), m.Amount)
}

func TestUnmarshalTruncated(t *testing.T) {
	b, err := (&SubmitTransactionRequest{Transaction: []byte("transaction")}).Marshal()
	require.NoError(t, err)

	m := &SubmitTransactionRequest{}
	assert.Error(t, m.Unmarshal(b[:len(b)-3]))
}

func TestCodec(t *testing.T) {
	codec := Codec{}
	assert.Equal(t, "proto", codec.Name())

	b, err := codec.Marshal(&ConfirmBmmResponse{Connected: true})
	require.NoError(t, err)

	var resp ConfirmBmmResponse
	require.NoError(t, codec.Unmarshal(b, &resp))
	assert.True(t, resp.Connected)

	// generated messages go through the protobuf runtime
	b, err = codec.Marshal(&grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)

	var healthReq grpc_health_v1.HealthCheckRequest
	require.NoError(t, codec.Unmarshal(b, &healthReq))
	assert.Equal(t, ServiceName, healthReq.GetService())

	_, err = codec.Marshal(struct{}{})
	assert.Error(t, err)
}
