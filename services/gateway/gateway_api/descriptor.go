package gateway_api

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// File describes sidechain.proto. It is registered with the global registry so that grpc
// reflection can describe the service.
var File protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(sidechainFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}

	if err = protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(err)
	}

	File = fd
}

func sidechainFileProto() *descriptorpb.FileDescriptorProto {
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated := descriptorpb.FieldDescriptorProto_LABEL_REPEATED

	field := func(name string, number int32, label descriptorpb.FieldDescriptorProto_Label,
		typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(number),
			Label:  label.Enum(),
			Type:   typ.Enum(),
		}
	}

	message := func(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
		return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
	}

	method := func(name string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(".bitnames.sidechain.v1." + name + "Request"),
			OutputType: proto.String(".bitnames.sidechain.v1." + name + "Response"),
		}
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("bitnames/sidechain/v1/sidechain.proto"),
		Package: proto.String("bitnames.sidechain.v1"),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{GoPackage: proto.String("./;gateway_api")},
		MessageType: []*descriptorpb.DescriptorProto{
			message("SubmitTransactionRequest",
				field("transaction", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_BYTES)),
			message("SubmitTransactionResponse",
				field("valid", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				field("fee", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_UINT64)),
			message("AttemptBmmRequest",
				field("amount", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_UINT64)),
			message("AttemptBmmResponse"),
			message("ConfirmBmmRequest"),
			message("ConfirmBmmResponse",
				field("connected", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_BOOL)),
			message("GetUtxosByAddressesRequest",
				field("addresses", 1, repeated, descriptorpb.FieldDescriptorProto_TYPE_BYTES)),
			message("GetUtxosByAddressesResponse",
				field("utxos", 1, repeated, descriptorpb.FieldDescriptorProto_TYPE_BYTES)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Sidechain"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("SubmitTransaction"),
				method("AttemptBmm"),
				method("ConfirmBmm"),
				method("GetUtxosByAddresses"),
			},
		}},
	}
}
