package cluster

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/metrics"
	"github.com/halo-hpc/halo/pkg/types"
)

// AgentCaller performs one resource agent operation against a remote host.
// The engine's unit tests substitute a fake; production uses the gRPC caller
// installed by NewContext.
type AgentCaller interface {
	Operation(ctx context.Context, addr string, req *proto.OperationRequest) (*proto.OperationReply, error)
}

// grpcCaller dials the remote agent per operation, mirroring the short-lived
// connection model of the wire protocol. A nil tlsConfig selects plain TCP.
type grpcCaller struct {
	tlsConfig *tls.Config
}

func (c *grpcCaller) Operation(ctx context.Context, addr string, req *proto.OperationRequest) (*proto.OperationReply, error) {
	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", addr, err)
	}
	defer conn.Close()

	return proto.NewOcfResourceAgentClient(conn).Operation(ctx, req)
}

// operationRequest builds the wire request for an operation on this resource.
// Parameters are sent in key order so requests are deterministic.
func (r *Resource) operationRequest(op types.AgentOp) *proto.OperationRequest {
	params := r.SortedParameters()
	args := make([]*proto.KeyValue, 0, len(params))
	for _, kv := range params {
		args = append(args, &proto.KeyValue{Key: kv[0], Value: kv[1]})
	}

	return &proto.OperationRequest{
		Op:       int32(op),
		Resource: r.Kind,
		Args:     args,
	}
}

// operation runs op against the host selected by loc and maps the reply.
// Transport failures propagate to the caller; a remote-side execution error
// is logged and surfaced as OcfErrGeneric.
func (r *Resource) operation(ctx context.Context, loc types.Location, op types.AgentOp) (types.OcfStatus, error) {
	host := r.home
	if loc == types.Away {
		host = r.failover
		if host == nil {
			return types.OcfErrGeneric, fmt.Errorf("resource %s has no failover host", r.ParamsString())
		}
	}

	metrics.AgentOperationsTotal.WithLabelValues(op.String(), loc.String()).Inc()

	reply, err := r.context.Caller.Operation(ctx, host.Address(), r.operationRequest(op))
	if err != nil {
		metrics.AgentOperationErrors.WithLabelValues(op.String()).Inc()
		return types.OcfErrGeneric, err
	}

	if reply.Error != "" {
		logger := log.WithComponent("rpc")
		logger.Warn().
			Str("host", host.ID()).
			Str("op", op.String()).
			Str("error", reply.Error).
			Msg("Remote agent returned error")
		return types.OcfErrGeneric, nil
	}

	return types.OcfStatusFromCode(int(reply.Status)), nil
}

// Monitor checks whether the resource is running at loc.
func (r *Resource) Monitor(ctx context.Context, loc types.Location) (types.OcfStatus, error) {
	return r.operation(ctx, loc, types.OpMonitor)
}

// Start starts the resource at loc.
func (r *Resource) Start(ctx context.Context, loc types.Location) (types.OcfStatus, error) {
	return r.operation(ctx, loc, types.OpStart)
}

// Stop stops the resource on its home host.
func (r *Resource) Stop(ctx context.Context) (types.OcfStatus, error) {
	return r.operation(ctx, types.Home, types.OpStop)
}
