package framework

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// AgentSpec describes one halo-remote process to launch.
type AgentSpec struct {
	// Port must be unique within the test; all agents listen on loopback.
	Port int

	// ID is passed as --test-id. Empty uses the test's own ID. Tests that
	// run several agents give each a meaningful name so state files and
	// fence targets stay distinct.
	ID string
}

// AgentProc is a handle to a running halo-remote process.
type AgentProc struct {
	Spec AgentSpec
	cmd  *exec.Cmd
}

// Stop terminates the agent if it is still running.
func (a *AgentProc) Stop() {
	if a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
		_, _ = a.cmd.Process.Wait()
	}
}

// StartAgents launches a halo-remote process for each spec and waits until
// every one accepts connections. The processes are torn down when the test
// ends.
func (e *Environment) StartAgents(specs []AgentSpec) []*AgentProc {
	e.t.Helper()

	procs := make([]*AgentProc, 0, len(specs))
	for _, spec := range specs {
		id := spec.ID
		if id == "" {
			id = e.TestID
		}

		cmd := exec.Command(e.agentBinary, "--test-id", id, "--verbose")
		cmd.Env = append(os.Environ(),
			"HALO_TEST_LOG="+e.LogPath,
			"HALO_TEST_DIRECTORY="+e.Dir,
			"OCF_ROOT="+e.OCFRoot,
			"HALO_NET=127.0.0.0/24",
			fmt.Sprintf("HALO_PORT=%d", spec.Port),
		)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		if err := cmd.Start(); err != nil {
			e.t.Fatalf("could not launch agent on port %d: %v", spec.Port, err)
		}

		proc := &AgentProc{Spec: spec, cmd: cmd}
		e.t.Cleanup(proc.Stop)
		procs = append(procs, proc)
	}

	for _, proc := range procs {
		addr := fmt.Sprintf("127.0.0.1:%d", proc.Spec.Port)
		if err := waitReachable(addr); err != nil {
			e.t.Fatalf("agent on %s never became reachable: %v", addr, err)
		}
	}

	return procs
}
