// Hand-maintained Go bindings for halo.proto. The message types use the
// struct-tag form understood by the protobuf runtime so that no generated
// descriptor needs to be checked in; keep them in sync with halo.proto.
package proto

import (
	"github.com/golang/protobuf/proto"
)

// Operation codes carried in OperationRequest.Op.
const (
	OpMonitor int32 = 0
	OpStart   int32 = 1
	OpStop    int32 = 2
)

// KeyValue is one resource parameter or snapshot parameter.
type KeyValue struct {
	Key   string `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Value string `protobuf:"bytes,2,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *KeyValue) Reset()         { *m = KeyValue{} }
func (m *KeyValue) String() string { return proto.CompactTextString(m) }
func (*KeyValue) ProtoMessage()    {}

// OperationRequest asks a remote agent to run a resource agent operation.
type OperationRequest struct {
	Op       int32       `protobuf:"varint,1,opt,name=op,proto3" json:"op,omitempty"`
	Resource string      `protobuf:"bytes,2,opt,name=resource,proto3" json:"resource,omitempty"`
	Args     []*KeyValue `protobuf:"bytes,3,rep,name=args,proto3" json:"args,omitempty"`
}

func (m *OperationRequest) Reset()         { *m = OperationRequest{} }
func (m *OperationRequest) String() string { return proto.CompactTextString(m) }
func (*OperationRequest) ProtoMessage()    {}

// OperationReply carries the outcome of one operation. Status holds the
// script's OCF exit code and is only meaningful when Error is empty.
type OperationReply struct {
	Status int32  `protobuf:"varint,1,opt,name=status,proto3" json:"status,omitempty"`
	Error  string `protobuf:"bytes,2,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *OperationReply) Reset()         { *m = OperationReply{} }
func (m *OperationReply) String() string { return proto.CompactTextString(m) }
func (*OperationReply) ProtoMessage()    {}

type MonitorRequest struct{}

func (m *MonitorRequest) Reset()         { *m = MonitorRequest{} }
func (m *MonitorRequest) String() string { return proto.CompactTextString(m) }
func (*MonitorRequest) ProtoMessage()    {}

// ResourceState is one resource's entry in a cluster snapshot. Status is the
// manager's own resource status code, not an OCF code.
type ResourceState struct {
	Status     int32       `protobuf:"varint,1,opt,name=status,proto3" json:"status,omitempty"`
	Parameters []*KeyValue `protobuf:"bytes,2,rep,name=parameters,proto3" json:"parameters,omitempty"`
}

func (m *ResourceState) Reset()         { *m = ResourceState{} }
func (m *ResourceState) String() string { return proto.CompactTextString(m) }
func (*ResourceState) ProtoMessage()    {}

type ClusterState struct {
	Resources []*ResourceState `protobuf:"bytes,1,rep,name=resources,proto3" json:"resources,omitempty"`
}

func (m *ClusterState) Reset()         { *m = ClusterState{} }
func (m *ClusterState) String() string { return proto.CompactTextString(m) }
func (*ClusterState) ProtoMessage()    {}

func init() {
	proto.RegisterType((*KeyValue)(nil), "halo.KeyValue")
	proto.RegisterType((*OperationRequest)(nil), "halo.OperationRequest")
	proto.RegisterType((*OperationReply)(nil), "halo.OperationReply")
	proto.RegisterType((*MonitorRequest)(nil), "halo.MonitorRequest")
	proto.RegisterType((*ResourceState)(nil), "halo.ResourceState")
	proto.RegisterType((*ClusterState)(nil), "halo.ClusterState")
}
