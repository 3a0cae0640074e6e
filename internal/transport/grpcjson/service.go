package grpcjson

import (
	"context"

	"google.golang.org/grpc"
)

// Unary adapts a typed handler to grpc.MethodDesc.Handler. fullMethod is the
// "/package.Service/Method" name interceptors see.
func Unary[Req, Resp any](fullMethod string, call func(ctx context.Context, req *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Method builds a MethodDesc for service.
func Method[Req, Resp any](service, name string, call func(ctx context.Context, req *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler:    Unary("/"+service+"/"+name, call),
	}
}

// Register attaches a service made of methods to s. The handler type is
// left open since every method closes over its own receiver. Metadata names
// no .proto file, so reflection has nothing to describe.
func Register(s grpc.ServiceRegistrar, service string, impl any, methods ...grpc.MethodDesc) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*any)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    service,
	}, impl)
}
