// Package gateway_api holds the wire messages and the gRPC service description of the
// sidechain gateway. Messages use the protocol buffers wire format, field numbers are listed
// next to every field.
package gateway_api

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every request and response of the Sidechain service.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

type SubmitTransactionRequest struct {
	Transaction []byte // 1
}

type SubmitTransactionResponse struct {
	Valid bool   // 1
	Fee   uint64 // 2
}

type AttemptBmmRequest struct {
	Amount uint64 // 1
}

type AttemptBmmResponse struct{}

type ConfirmBmmRequest struct{}

type ConfirmBmmResponse struct {
	Connected bool // 1
}

type GetUtxosByAddressesRequest struct {
	Addresses [][]byte // 1, repeated
}

type GetUtxosByAddressesResponse struct {
	Utxos [][]byte // 1, repeated
}

func (m *SubmitTransactionRequest) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, m.Transaction), nil
}

func (m *SubmitTransactionRequest) Unmarshal(b []byte) error {
	*m = SubmitTransactionRequest{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			m.Transaction = append([]byte(nil), v...)

			return n
		}

		return 0
	})
}

func (m *SubmitTransactionResponse) Marshal() ([]byte, error) {
	b := appendBool(nil, 1, m.Valid)

	return appendVarint(b, 2, m.Fee), nil
}

func (m *SubmitTransactionResponse) Unmarshal(b []byte) error {
	*m = SubmitTransactionResponse{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.VarintType {
			return 0
		}

		v, n := protowire.ConsumeVarint(b)

		switch num {
		case 1:
			m.Valid = protowire.DecodeBool(v)
		case 2:
			m.Fee = v
		default:
			return 0
		}

		return n
	})
}

func (m *AttemptBmmRequest) Marshal() ([]byte, error) {
	return appendVarint(nil, 1, m.Amount), nil
}

func (m *AttemptBmmRequest) Unmarshal(b []byte) error {
	*m = AttemptBmmRequest{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			m.Amount = v

			return n
		}

		return 0
	})
}

func (m *AttemptBmmResponse) Marshal() ([]byte, error) {
	return nil, nil
}

func (m *AttemptBmmResponse) Unmarshal(b []byte) error {
	return consumeFields(b, skipAll)
}

func (m *ConfirmBmmRequest) Marshal() ([]byte, error) {
	return nil, nil
}

func (m *ConfirmBmmRequest) Unmarshal(b []byte) error {
	return consumeFields(b, skipAll)
}

func (m *ConfirmBmmResponse) Marshal() ([]byte, error) {
	return appendBool(nil, 1, m.Connected), nil
}

func (m *ConfirmBmmResponse) Unmarshal(b []byte) error {
	*m = ConfirmBmmResponse{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			m.Connected = protowire.DecodeBool(v)

			return n
		}

		return 0
	})
}

func (m *GetUtxosByAddressesRequest) Marshal() ([]byte, error) {
	return appendRepeatedBytes(nil, 1, m.Addresses), nil
}

func (m *GetUtxosByAddressesRequest) Unmarshal(b []byte) error {
	*m = GetUtxosByAddressesRequest{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			m.Addresses = append(m.Addresses, append([]byte(nil), v...))

			return n
		}

		return 0
	})
}

func (m *GetUtxosByAddressesResponse) Marshal() ([]byte, error) {
	return appendRepeatedBytes(nil, 1, m.Utxos), nil
}

func (m *GetUtxosByAddressesResponse) Unmarshal(b []byte) error {
	*m = GetUtxosByAddressesResponse{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			m.Utxos = append(m.Utxos, append([]byte(nil), v...))

			return n
		}

		return 0
	})
}
