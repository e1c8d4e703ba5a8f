package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/log"
)

// Server is the manager's control channel: a gRPC endpoint on a local unix
// socket that interactive clients query for a snapshot of cluster state.
type Server struct {
	cluster *cluster.Cluster
	grpc    *grpc.Server
	logger  zerolog.Logger
}

// NewServer creates a control channel server over an assembled cluster.
func NewServer(c *cluster.Cluster) *Server {
	s := &Server{
		cluster: c,
		grpc:    grpc.NewServer(),
		logger:  log.WithComponent("api"),
	}
	proto.RegisterMgmtServer(s.grpc, s)
	return s
}

// Run binds the control socket and serves until ctx is cancelled. A stale
// socket file from a previous run is silently removed first.
func (s *Server) Run(ctx context.Context) error {
	path := s.cluster.Context.SocketPath()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove stale socket %q: %w", path, err)
	}

	lis, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("could not listen on %q: %w", path, err)
	}

	if s.cluster.Context.Options.Verbose {
		s.logger.Info().Str("socket", path).Msg("Listening on control socket")
	}

	go func() {
		<-ctx.Done()
		s.grpc.GracefulStop()
	}()

	return s.grpc.Serve(lis)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// Monitor returns a snapshot of every resource's status and parameters, in
// the cluster's enumeration order.
func (s *Server) Monitor(ctx context.Context, _ *proto.MonitorRequest) (*proto.ClusterState, error) {
	state := &proto.ClusterState{}

	for res := range s.cluster.Resources() {
		entry := &proto.ResourceState{
			Status: int32(res.GetStatus()),
		}
		for _, kv := range res.SortedParameters() {
			entry.Parameters = append(entry.Parameters, &proto.KeyValue{Key: kv[0], Value: kv[1]})
		}
		state.Resources = append(state.Resources, entry)
	}

	return state, nil
}
