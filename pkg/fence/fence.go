package fence

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/types"
)

// ErrFenceFailed reports a fence agent that ran but did not succeed.
var ErrFenceFailed = errors.New("fencing failed")

// Agent is one of the supported fence agent bindings. An Agent knows which
// executable implements it and how to render the stdin parameter blob for an
// action against a given host; the process transport is shared by all agents.
type Agent interface {
	// Executable returns the agent binary, resolved through PATH.
	Executable() string

	// CommandInput renders the newline-separated key=value blob written to
	// the agent's standard input.
	CommandInput(hostID string, cmd types.FenceCommand) []byte
}

// Powerman fences through a local powerman daemon. The host is addressed by
// its plug name; no extra parameters are needed.
type Powerman struct{}

func (Powerman) Executable() string { return "fence_powerman" }

func (Powerman) CommandInput(hostID string, cmd types.FenceCommand) []byte {
	return []byte(fmt.Sprintf("ipaddr=localhost\naction=%s\nplug=%s\n", cmd, hostID))
}

// Redfish fences through a BMC speaking Redfish.
type Redfish struct {
	Username string
	Password string
}

func (Redfish) Executable() string { return "fence_redfish" }

func (r Redfish) CommandInput(hostID string, cmd types.FenceCommand) []byte {
	return []byte(fmt.Sprintf("ipaddr=%s\naction=%s\nusername=%s\npassword=%s\nssl-insecure=true",
		hostID, cmd, r.Username, r.Password))
}

// Test is the fence agent used by the test environment, where "powering off"
// a host means signalling its remote agent process.
type Test struct {
	// TestID names the test this agent runs within.
	TestID string

	// Target names the specific remote agent within the test.
	Target string
}

func (Test) Executable() string { return "fence_test" }

func (t Test) CommandInput(_ string, cmd types.FenceCommand) []byte {
	return []byte(fmt.Sprintf("action=%s\ntest_id=%s\ntarget=%s", cmd, t.TestID, t.Target))
}

// FromConfig builds the Agent named in a host's configuration. Powerman
// needs no parameters; redfish and fence_test require theirs.
func FromConfig(agent string, params map[string]string) (Agent, error) {
	switch agent {
	case "powerman":
		return Powerman{}, nil
	case "redfish":
		user, ok := params["username"]
		if !ok {
			return nil, fmt.Errorf("redfish fence agent needs a username parameter")
		}
		pass, ok := params["password"]
		if !ok {
			return nil, fmt.Errorf("redfish fence agent needs a password parameter")
		}
		return Redfish{Username: user, Password: pass}, nil
	case "fence_test":
		id, ok := params["test_id"]
		if !ok {
			return nil, fmt.Errorf("test fence agent needs a test_id parameter")
		}
		target, ok := params["target"]
		if !ok {
			return nil, fmt.Errorf("test fence agent needs a target parameter")
		}
		return Test{TestID: id, Target: target}, nil
	}
	return nil, fmt.Errorf("unknown fence agent %q", agent)
}

// run spawns the agent executable, feeds it the parameter blob, and returns
// its stdout along with the wait result.
func run(agent Agent, hostID string, cmd types.FenceCommand) (string, error) {
	c := exec.Command(agent.Executable())
	c.Stdin = bytes.NewReader(agent.CommandInput(hostID, cmd))

	var stdout bytes.Buffer
	c.Stdout = &stdout

	if err := c.Run(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return stdout.String(), fmt.Errorf("%w: %s exited %d", ErrFenceFailed, agent.Executable(), exit.ExitCode())
		}
		return "", fmt.Errorf("could not run %s: %w", agent.Executable(), err)
	}

	return stdout.String(), nil
}

// Run performs an on or off action against hostID. Status is rejected;
// callers use PoweredOn so that interpreting the agent's output stays in one
// place.
func Run(agent Agent, hostID string, cmd types.FenceCommand) error {
	if cmd == types.FenceStatus {
		return fmt.Errorf("use PoweredOn for power status queries")
	}

	out, err := run(agent, hostID, cmd)
	if err != nil {
		return err
	}
	if out != "" {
		logger := log.WithComponent("fence")
		logger.Debug().Str("output", strings.TrimSpace(out)).Msg("Fence agent output")
	}
	return nil
}

// PoweredOn queries hostID's power state through the agent. The agent must
// exit zero and report either "is ON" or "is OFF" on stdout; anything else is
// a fencing error.
func PoweredOn(agent Agent, hostID string) (bool, error) {
	out, err := run(agent, hostID, types.FenceStatus)
	if err != nil {
		return false, err
	}

	switch {
	case strings.Contains(out, "is ON"):
		return true, nil
	case strings.Contains(out, "is OFF"):
		return false, nil
	}
	return false, fmt.Errorf("%w: could not interpret agent output %q", ErrFenceFailed, strings.TrimSpace(out))
}
