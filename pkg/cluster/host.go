package cluster

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/fence"
	"github.com/halo-hpc/halo/pkg/types"
)

// Host is a server on which resources can run. Hosts are shared: every
// resource that is home to (or can fail over to) a host references the same
// Host value. Only the power status mutates after construction, under the
// host's own lock.
type Host struct {
	name string
	port int

	fenceAgent fence.Agent

	mu     sync.Mutex
	status types.HostStatus
}

// NewHost creates a Host. A zero port falls back to defaultPort.
func NewHost(name string, port, defaultPort int, agent fence.Agent) *Host {
	if port == 0 {
		port = defaultPort
	}
	return &Host{
		name:       name,
		port:       port,
		fenceAgent: agent,
		status:     types.HostUnknown,
	}
}

// HostFromConfig builds a Host from its configuration entry.
func HostFromConfig(cfg config.Host, defaults config.Defaults) (*Host, error) {
	name, port, err := splitHostPort(cfg.Hostname)
	if err != nil {
		return nil, err
	}

	var agent fence.Agent
	if cfg.FenceAgent != "" {
		agent, err = fence.FromConfig(cfg.FenceAgent, cfg.FenceParameters)
		if err != nil {
			return nil, fmt.Errorf("host %q: %w", cfg.Hostname, err)
		}
	}

	return NewHost(name, port, defaults.Port, agent), nil
}

// splitHostPort parses "name[:port]". The port is optional.
func splitHostPort(s string) (string, int, error) {
	name, portStr, found := strings.Cut(s, ":")
	if name == "" {
		return "", 0, fmt.Errorf("empty hostname in %q", s)
	}
	if !found {
		return name, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", s)
	}
	return name, port, nil
}

func (h *Host) Name() string { return h.name }

func (h *Host) Port() int { return h.port }

// Address returns the name:port dial target for this host's remote agent.
func (h *Host) Address() string {
	return fmt.Sprintf("%s:%d", h.name, h.port)
}

// ID returns a stable unique identifier for this host. Normally this is the
// hostname; in the test environment, where many hosts share one machine, the
// test fence target is the meaningful unique name.
func (h *Host) ID() string {
	if t, ok := h.fenceAgent.(fence.Test); ok {
		return t.Target
	}
	return h.name
}

// String identifies the host for human-facing output.
func (h *Host) String() string {
	if t, ok := h.fenceAgent.(fence.Test); ok {
		return fmt.Sprintf("%s (%s:%d)", t.Target, h.name, h.port)
	}
	return h.name
}

// FenceAgent returns the host's fence binding, or nil when it has none.
func (h *Host) FenceAgent() fence.Agent { return h.fenceAgent }

// DoFence performs a power action on this host through its fence agent.
func (h *Host) DoFence(cmd types.FenceCommand) error {
	if h.fenceAgent == nil {
		return fmt.Errorf("host %q has no fence agent", h.name)
	}
	return fence.Run(h.fenceAgent, h.name, cmd)
}

// PoweredOn queries this host's power state through its fence agent.
func (h *Host) PoweredOn() (bool, error) {
	if h.fenceAgent == nil {
		return false, fmt.Errorf("host %q has no fence agent", h.name)
	}
	return fence.PoweredOn(h.fenceAgent, h.name)
}

func (h *Host) GetStatus() types.HostStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// SetStatus records an observed liveness state. Down is rejected: it is
// reserved for a fencing-confirmed transition and must never be concluded
// from observation alone.
func (h *Host) SetStatus(status types.HostStatus) error {
	if status == types.HostDown {
		return fmt.Errorf("host status down requires fencing confirmation")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	return nil
}
