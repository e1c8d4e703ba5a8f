package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/types"
)

// fakeAgent simulates the remote agents for engine tests: per-host resource
// state with injectable start failures, remote errors, and dead hosts.
type fakeAgent struct {
	mu          sync.Mutex
	running     map[string]bool
	failStart   map[string]bool
	remoteErr   map[string]string
	unreachable map[string]bool
	startCalls  map[string]int
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		running:     make(map[string]bool),
		failStart:   make(map[string]bool),
		remoteErr:   make(map[string]string),
		unreachable: make(map[string]bool),
		startCalls:  make(map[string]int),
	}
}

func (f *fakeAgent) key(addr string, req *proto.OperationRequest) string {
	id := req.Resource
	for _, kv := range req.Args {
		if kv.Key == "target" || kv.Key == "pool" {
			id = kv.Value
			break
		}
	}
	return addr + "|" + id
}

func (f *fakeAgent) Operation(_ context.Context, addr string, req *proto.OperationRequest) (*proto.OperationReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unreachable[addr] {
		return nil, errors.New("connection refused")
	}

	k := f.key(addr, req)
	if msg, ok := f.remoteErr[k]; ok {
		return &proto.OperationReply{Error: msg}, nil
	}

	switch types.AgentOp(req.Op) {
	case types.OpMonitor:
		if f.running[k] {
			return &proto.OperationReply{Status: int32(types.OcfSuccess)}, nil
		}
		return &proto.OperationReply{Status: int32(types.OcfErrNotRunning)}, nil
	case types.OpStart:
		f.startCalls[k]++
		if f.failStart[k] {
			return &proto.OperationReply{Status: int32(types.OcfErrGeneric)}, nil
		}
		f.running[k] = true
		return &proto.OperationReply{Status: int32(types.OcfSuccess)}, nil
	case types.OpStop:
		delete(f.running, k)
		return &proto.OperationReply{Status: int32(types.OcfSuccess)}, nil
	}
	return &proto.OperationReply{Status: int32(types.OcfErrUnimplemented)}, nil
}

func (f *fakeAgent) setRunning(addr, id string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if running {
		f.running[addr+"|"+id] = true
	} else {
		delete(f.running, addr+"|"+id)
	}
}

func (f *fakeAgent) setUnreachable(addr string, dead bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[addr] = dead
}

func (f *fakeAgent) starts(addr, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls[addr+"|"+id]
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// haConfig is one group (pool + target) homed on h1 with h2 as partner.
// The home host carries a test fence binding so failover paths can fence it.
func haConfig() *config.Config {
	return &config.Config{
		Hosts: []config.Host{
			{
				Hostname:   "h1:8001",
				FenceAgent: "fence_test",
				FenceParameters: map[string]string{
					"test_id": "engine", "target": "fence_h1",
				},
				Resources: map[string]config.Resource{
					"p1": {Kind: cluster.KindZpool, Parameters: map[string]string{"pool": "p1"}},
					"ost1": {
						Kind: cluster.KindLustre,
						Parameters: map[string]string{
							"mountpoint": "/mnt/ost1", "target": "p1/ost1", "kind": "ost",
						},
						Requires: "p1",
					},
				},
			},
			{
				Hostname:  "h2:8002",
				Resources: map[string]config.Resource{},
			},
		},
		FailoverPairs: [][]string{{"h1:8001", "h2:8002"}},
	}
}

// nonHAConfig is the same group without a failover partner.
func nonHAConfig() *config.Config {
	cfg := haConfig()
	cfg.Hosts = cfg.Hosts[:1]
	cfg.Hosts[0].FenceAgent = ""
	cfg.Hosts[0].FenceParameters = nil
	cfg.FailoverPairs = nil
	return cfg
}

func newTestEngine(cfg *config.Config, fake *fakeAgent, manage bool) (*Engine, *cluster.ResourceGroup, error) {
	ctx := &cluster.Context{
		Options:  cluster.Options{ManageResources: manage},
		Defaults: config.Defaults{Port: 8000},
		Out:      nopWriter{},
		Caller:   fake,
	}
	clus, err := cluster.FromConfig(cfg, ctx)
	if err != nil {
		return nil, nil, err
	}
	return New(clus), clus.Groups()[0], nil
}
