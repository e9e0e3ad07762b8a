package agronomyapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "agronomy.v1.Agronomy"

// AgronomyServer carries requests and replies as google.protobuf.Struct
// documents whose keys match the JSON encoding of the model messages.
type AgronomyServer interface {
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateGDD(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecalculateGDD(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FillGaps(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(AgronomyServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn call) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(AgronomyServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(srv.(AgronomyServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AgronomyServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Recommend", AgronomyServer.Recommend),
		unary("Decide", AgronomyServer.Decide),
		unary("CalculateGDD", AgronomyServer.CalculateGDD),
		unary("RecalculateGDD", AgronomyServer.RecalculateGDD),
		unary("FillGaps", AgronomyServer.FillGaps),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agronomy/v1/agronomy.proto",
}

func RegisterAgronomyServer(s grpc.ServiceRegistrar, srv AgronomyServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is the caller side of ServiceDesc.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Recommend(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Recommend", in, opts...)
}

func (c *Client) Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Decide", in, opts...)
}

func (c *Client) CalculateGDD(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CalculateGDD", in, opts...)
}

func (c *Client) RecalculateGDD(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RecalculateGDD", in, opts...)
}

func (c *Client) FillGaps(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "FillGaps", in, opts...)
}
