package gateway_api

import (
	"github.com/bitnames/bitnames/errors"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

var _ encoding.Codec = Codec{}

// Codec marshals the gateway messages and hands every generated protobuf message, like the
// grpc health service ones, to the protobuf runtime. It is registered on the server and the
// client connection under the standard "proto" name.
type Codec struct{}

func (Codec) Name() string {
	return "proto"
}

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.Marshal()
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, errors.NewInvalidArgumentError("[gateway] cannot marshal %T", v)
	}
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.Unmarshal(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return errors.NewInvalidArgumentError("[gateway] cannot unmarshal into %T", v)
	}
}
