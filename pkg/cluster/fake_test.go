package cluster

import (
	"context"
	"errors"
	"sync"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/types"
)

// fakeAgent is an in-memory stand-in for the remote agents: it tracks which
// resources are "running" per host address and can be told to fail starts,
// report remote errors, or drop off the network entirely.
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

// key identifies one resource on one host.
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

func (f *fakeAgent) starts(addr, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls[addr+"|"+id]
}

// testContext builds a Context with the fake transport installed.
func testContext(caller AgentCaller) *Context {
	return &Context{
		Options:  Options{},
		Defaults: config.Defaults{Port: 8000},
		Out:      nopWriter{},
		Caller:   caller,
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// oneHostConfig is a single host with one zpool and two dependent targets.
func oneHostConfig(hostname string) *config.Config {
	return &config.Config{
		Hosts: []config.Host{{
			Hostname: hostname,
			Resources: map[string]config.Resource{
				"p1": {
					Kind:       KindZpool,
					Parameters: map[string]string{"pool": "p1"},
				},
				"ost1": {
					Kind: KindLustre,
					Parameters: map[string]string{
						"mountpoint": "/mnt/ost1", "target": "p1/ost1", "kind": "ost",
					},
					Requires: "p1",
				},
				"ost2": {
					Kind: KindLustre,
					Parameters: map[string]string{
						"mountpoint": "/mnt/ost2", "target": "p1/ost2", "kind": "ost",
					},
					Requires: "p1",
				},
			},
		}},
	}
}
