package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/security"
	"github.com/halo-hpc/halo/pkg/types"
)

// Config holds the remote agent's settings.
type Config struct {
	// Network restricts the listen address to an interface address inside
	// this CIDR. Empty falls back to the environment default.
	Network string

	// Port overrides the default agent port.
	Port int

	// TestID identifies this agent within a test run; it is forwarded to
	// resource agent scripts as HALO_TEST_ID.
	TestID string

	// OCFRoot overrides the resource agent script directory.
	OCFRoot string

	Verbose bool
	MTLS    bool

	Defaults config.Defaults
}

// Server is the per-host agent that executes resource agent operations on
// behalf of the manager.
type Server struct {
	cfg    Config
	grpc   *grpc.Server
	logger zerolog.Logger
}

// NewServer creates the agent's gRPC server, with mutual TLS when enabled.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Network == "" {
		cfg.Network = cfg.Defaults.Network
	}
	if cfg.Port == 0 {
		cfg.Port = cfg.Defaults.Port
	}
	if cfg.OCFRoot == "" {
		cfg.OCFRoot = cfg.Defaults.OCFRoot
	}

	var opts []grpc.ServerOption
	if cfg.MTLS {
		tlsConfig, err := security.ServerTLSConfig(cfg.Defaults)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}

	s := &Server{
		cfg:    cfg,
		grpc:   grpc.NewServer(opts...),
		logger: log.WithComponent("remote"),
	}
	proto.RegisterOcfResourceAgentServer(s.grpc, s)
	return s, nil
}

// listeningAddress finds an interface address inside the configured network.
func listeningAddress(network string) (string, error) {
	_, cidr, err := net.ParseCIDR(network)
	if err != nil {
		return "", fmt.Errorf("invalid network %q: %w", network, err)
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("could not list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil && cidr.Contains(ip) {
			return ip.String(), nil
		}
	}

	return "", fmt.Errorf("could not find address matching %s to listen on; "+
		"try specifying the management network as HALO_NET", network)
}

// Run selects a listen address, announces this agent to the test fence if
// needed, and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.identifyForTestFence(); err != nil {
		return err
	}

	ip, err := listeningAddress(s.cfg.Network)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(ip, strconv.Itoa(s.cfg.Port))

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %q: %w", addr, err)
	}
	if s.cfg.Verbose {
		s.logger.Info().Str("addr", addr).Msg("Listening")
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

// identifyForTestFence writes this agent's PID where the test fence agent
// looks for it. The test fence treats the file's presence as "powered on",
// so when both the test directory and a test ID are set the agent must not
// run without it.
func (s *Server) identifyForTestFence() error {
	if s.cfg.TestID == "" {
		return nil
	}
	dir, ok := os.LookupEnv("HALO_TEST_DIRECTORY")
	if !ok {
		return nil
	}

	pidFile := filepath.Join(dir, s.cfg.TestID+".pid")
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(pidFile, []byte(pid), 0644); err != nil {
		return fmt.Errorf("could not write pid file %q: %w", pidFile, err)
	}
	return nil
}

// Operation runs one resource agent operation and reports its OCF exit code.
// Execution failures travel back in the reply's error field rather than as
// RPC errors, so the manager can distinguish "the agent ran and failed" from
// "the host is unreachable".
func (s *Server) Operation(ctx context.Context, req *proto.OperationRequest) (*proto.OperationReply, error) {
	op := types.AgentOp(req.Op)

	if s.cfg.Verbose {
		event := s.logger.Info().
			Str("request_id", uuid.NewString()).
			Str("op", op.String()).
			Str("resource", req.Resource)
		for _, arg := range req.Args {
			event = event.Str(arg.Key, arg.Value)
		}
		event.Msg("Got operation request")
	}

	code, output, err := doOperation(s.cfg.OCFRoot, s.cfg.TestID, req.Resource, op, req.Args)
	if err != nil {
		return &proto.OperationReply{Error: err.Error()}, nil
	}

	if code != 0 && s.cfg.Verbose {
		s.logger.Info().Int("code", code).Str("output", output).Msg("Resource agent reported failure")
	}

	return &proto.OperationReply{Status: int32(code)}, nil
}
