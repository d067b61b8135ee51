// Package rpc exposes the Ormos operations over gRPC. Messages are the JSON
// encoded structs of package api, carried with the "json" content subtype.
// Clients must call with content subtype "json" (application/grpc+json);
// protobuf-encoded requests are rejected.
package rpc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/unitexe/skopos/internal/service"
)

const ServiceName = "unit.containers.v0.Ormos"

// ServiceDesc describes the Ormos service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*service.Operations)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListUsbDevices", Handler: unaryHandler("ListUsbDevices", service.Operations.ListUsbDevices)},
		{MethodName: "MountUsbDevice", Handler: unaryHandler("MountUsbDevice", service.Operations.MountUsbDevice)},
		{MethodName: "UnmountUsbDevice", Handler: unaryHandler("UnmountUsbDevice", service.Operations.UnmountUsbDevice)},
		{MethodName: "ListImageArchives", Handler: unaryHandler("ListImageArchives", service.Operations.ListImageArchives)},
		{MethodName: "LoadImageArchive", Handler: unaryHandler("LoadImageArchive", service.Operations.LoadImageArchive)},
		{MethodName: "InspectImageArchive", Handler: unaryHandler("InspectImageArchive", service.Operations.InspectImageArchive)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ormos.proto",
}

// Register adds the Ormos service backed by ops to s
func Register(s *grpc.Server, ops service.Operations) {
	s.RegisterService(&ServiceDesc, ops)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(service.Operations, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			resp, err := call(srv.(service.Operations), ctx, req.(*Req))
			if err != nil {
				return nil, ToStatus(err)
			}
			return resp, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}, handler)
	}
}

// LoggingInterceptor logs every unary call with its status code and duration
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		event := log.Debug()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("rpc")
		return resp, err
	}
}
