// gRPC client and server stubs for the services in halo.proto.
package proto

import (
	"context"

	"google.golang.org/grpc"
)

// OcfResourceAgentClient is the client API for the OcfResourceAgent service.
type OcfResourceAgentClient interface {
	Operation(ctx context.Context, in *OperationRequest, opts ...grpc.CallOption) (*OperationReply, error)
}

type ocfResourceAgentClient struct {
	cc grpc.ClientConnInterface
}

func NewOcfResourceAgentClient(cc grpc.ClientConnInterface) OcfResourceAgentClient {
	return &ocfResourceAgentClient{cc}
}

func (c *ocfResourceAgentClient) Operation(ctx context.Context, in *OperationRequest, opts ...grpc.CallOption) (*OperationReply, error) {
	out := new(OperationReply)
	err := c.cc.Invoke(ctx, "/halo.OcfResourceAgent/Operation", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OcfResourceAgentServer is the server API for the OcfResourceAgent service.
type OcfResourceAgentServer interface {
	Operation(context.Context, *OperationRequest) (*OperationReply, error)
}

func RegisterOcfResourceAgentServer(s grpc.ServiceRegistrar, srv OcfResourceAgentServer) {
	s.RegisterService(&OcfResourceAgent_ServiceDesc, srv)
}

func _OcfResourceAgent_Operation_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OperationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OcfResourceAgentServer).Operation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/halo.OcfResourceAgent/Operation",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OcfResourceAgentServer).Operation(ctx, req.(*OperationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var OcfResourceAgent_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "halo.OcfResourceAgent",
	HandlerType: (*OcfResourceAgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Operation",
			Handler:    _OcfResourceAgent_Operation_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/proto/halo.proto",
}

// MgmtClient is the client API for the Mgmt service.
type MgmtClient interface {
	Monitor(ctx context.Context, in *MonitorRequest, opts ...grpc.CallOption) (*ClusterState, error)
}

type mgmtClient struct {
	cc grpc.ClientConnInterface
}

func NewMgmtClient(cc grpc.ClientConnInterface) MgmtClient {
	return &mgmtClient{cc}
}

func (c *mgmtClient) Monitor(ctx context.Context, in *MonitorRequest, opts ...grpc.CallOption) (*ClusterState, error) {
	out := new(ClusterState)
	err := c.cc.Invoke(ctx, "/halo.Mgmt/Monitor", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MgmtServer is the server API for the Mgmt service.
type MgmtServer interface {
	Monitor(context.Context, *MonitorRequest) (*ClusterState, error)
}

func RegisterMgmtServer(s grpc.ServiceRegistrar, srv MgmtServer) {
	s.RegisterService(&Mgmt_ServiceDesc, srv)
}

func _Mgmt_Monitor_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MonitorRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MgmtServer).Monitor(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/halo.Mgmt/Monitor",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MgmtServer).Monitor(ctx, req.(*MonitorRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Mgmt_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "halo.Mgmt",
	HandlerType: (*MgmtServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Monitor",
			Handler:    _Mgmt_Monitor_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/proto/halo.proto",
}
