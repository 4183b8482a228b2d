package gateway_api

import (
	"context"

	"github.com/bitnames/bitnames/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "bitnames.sidechain.v1.Sidechain"

	SubmitTransactionFullMethodName   = "/" + ServiceName + "/SubmitTransaction"
	AttemptBmmFullMethodName          = "/" + ServiceName + "/AttemptBmm"
	ConfirmBmmFullMethodName          = "/" + ServiceName + "/ConfirmBmm"
	GetUtxosByAddressesFullMethodName = "/" + ServiceName + "/GetUtxosByAddresses"
)

// SidechainClient is the client API for the Sidechain service.
type SidechainClient interface {
	SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionResponse, error)
	AttemptBmm(ctx context.Context, in *AttemptBmmRequest, opts ...grpc.CallOption) (*AttemptBmmResponse, error)
	ConfirmBmm(ctx context.Context, in *ConfirmBmmRequest, opts ...grpc.CallOption) (*ConfirmBmmResponse, error)
	GetUtxosByAddresses(ctx context.Context, in *GetUtxosByAddressesRequest, opts ...grpc.CallOption) (*GetUtxosByAddressesResponse, error)
}

type sidechainClient struct {
	cc grpc.ClientConnInterface
}

// NewSidechainClient returns a client that encodes every call with Codec.
func NewSidechainClient(cc grpc.ClientConnInterface) SidechainClient {
	return &sidechainClient{cc: cc}
}

func (c *sidechainClient) invoke(ctx context.Context, method string, in, out Message, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)

	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *sidechainClient) SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionResponse, error) {
	out := new(SubmitTransactionResponse)
	if err := c.invoke(ctx, SubmitTransactionFullMethodName, in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *sidechainClient) AttemptBmm(ctx context.Context, in *AttemptBmmRequest, opts ...grpc.CallOption) (*AttemptBmmResponse, error) {
	out := new(AttemptBmmResponse)
	if err := c.invoke(ctx, AttemptBmmFullMethodName, in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *sidechainClient) ConfirmBmm(ctx context.Context, in *ConfirmBmmRequest, opts ...grpc.CallOption) (*ConfirmBmmResponse, error) {
	out := new(ConfirmBmmResponse)
	if err := c.invoke(ctx, ConfirmBmmFullMethodName, in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *sidechainClient) GetUtxosByAddresses(ctx context.Context, in *GetUtxosByAddressesRequest, opts ...grpc.CallOption) (*GetUtxosByAddressesResponse, error) {
	out := new(GetUtxosByAddressesResponse)
	if err := c.invoke(ctx, GetUtxosByAddressesFullMethodName, in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// SidechainServer is the server API for the Sidechain service.
type SidechainServer interface {
	SubmitTransaction(context.Context, *SubmitTransactionRequest) (*SubmitTransactionResponse, error)
	AttemptBmm(context.Context, *AttemptBmmRequest) (*AttemptBmmResponse, error)
	ConfirmBmm(context.Context, *ConfirmBmmRequest) (*ConfirmBmmResponse, error)
	GetUtxosByAddresses(context.Context, *GetUtxosByAddressesRequest) (*GetUtxosByAddressesResponse, error)
}

// RegisterSidechainServer registers srv on s. The server must be created with
// grpc.ForceServerCodec(Codec{}).
func RegisterSidechainServer(s grpc.ServiceRegistrar, srv SidechainServer) {
	s.RegisterService(&Sidechain_ServiceDesc, srv)
}

// decodeRequest reports a request that cannot be decoded as DECODE instead of the INTERNAL
// status the grpc server uses.
func decodeRequest(dec func(interface{}) error, in Message, method string) error {
	if err := dec(in); err != nil {
		msg := err.Error()
		if st, ok := status.FromError(err); ok {
			msg = st.Message()
		}

		return errors.WrapGRPC(errors.NewDecodeError("invalid %s request: %s", method, msg))
	}

	return nil
}

func _Sidechain_SubmitTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitTransactionRequest)
	if err := decodeRequest(dec, in, "SubmitTransaction"); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SidechainServer).SubmitTransaction(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SubmitTransactionFullMethodName,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SidechainServer).SubmitTransaction(ctx, req.(*SubmitTransactionRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func _Sidechain_AttemptBmm_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AttemptBmmRequest)
	if err := decodeRequest(dec, in, "AttemptBmm"); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SidechainServer).AttemptBmm(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AttemptBmmFullMethodName,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SidechainServer).AttemptBmm(ctx, req.(*AttemptBmmRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func _Sidechain_ConfirmBmm_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ConfirmBmmRequest)
	if err := decodeRequest(dec, in, "ConfirmBmm"); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SidechainServer).ConfirmBmm(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ConfirmBmmFullMethodName,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SidechainServer).ConfirmBmm(ctx, req.(*ConfirmBmmRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func _Sidechain_GetUtxosByAddresses_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetUtxosByAddressesRequest)
	if err := decodeRequest(dec, in, "GetUtxosByAddresses"); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SidechainServer).GetUtxosByAddresses(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetUtxosByAddressesFullMethodName,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SidechainServer).GetUtxosByAddresses(ctx, req.(*GetUtxosByAddressesRequest))
	}

	return interceptor(ctx, in, info, handler)
}

var Sidechain_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SidechainServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitTransaction",
			Handler:    _Sidechain_SubmitTransaction_Handler,
		},
		{
			MethodName: "AttemptBmm",
			Handler:    _Sidechain_AttemptBmm_Handler,
		},
		{
			MethodName: "ConfirmBmm",
			Handler:    _Sidechain_ConfirmBmm_Handler,
		},
		{
			MethodName: "GetUtxosByAddresses",
			Handler:    _Sidechain_GetUtxosByAddresses_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "services/gateway/gateway_api/sidechain.proto",
}
