// Package framework provides the sandbox used by the end-to-end tests: a
// private directory per test, stub OCF resource agent scripts, a test fence
// agent, and helpers for launching halo-remote processes and an in-process
// manager.
package framework

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/config"
)

// Environment holds one test's runtime state. All access to the test's
// on-disk state goes through methods here rather than being hand-built in
// the tests.
type Environment struct {
	t *testing.T

	// TestID names the test; state files and pid files key off it unless an
	// agent carries its own ID.
	TestID string

	// Dir is the test's private working directory.
	Dir string

	// OCFRoot holds the stub resource agent scripts.
	OCFRoot string

	// LogPath is the file the stub scripts log their operations to.
	LogPath string

	agentBinary string
	logOffset   int
}

// AgentBinaryEnv names the environment variable that points at a built
// halo-remote binary for the end-to-end tests.
const AgentBinaryEnv = "HALO_REMOTE_BINARY"

// New creates a sandbox for the named test. Tests are skipped when no
// halo-remote binary is available.
func New(t *testing.T, testID string) *Environment {
	t.Helper()

	binary := os.Getenv(AgentBinaryEnv)
	if binary == "" {
		binary = "../../bin/halo-remote"
	}
	if _, err := os.Stat(binary); err != nil {
		t.Skipf("halo-remote binary not found at %q; build it or set %s", binary, AgentBinaryEnv)
	}
	binary, err := filepath.Abs(binary)
	if err != nil {
		t.Fatalf("could not resolve agent binary path: %v", err)
	}

	dir := t.TempDir()
	env := &Environment{
		t:           t,
		TestID:      testID,
		Dir:         dir,
		OCFRoot:     filepath.Join(dir, "ocf"),
		LogPath:     filepath.Join(dir, "test_log"),
		agentBinary: binary,
	}

	env.writeScripts()

	if err := os.WriteFile(env.LogPath, nil, 0644); err != nil {
		t.Fatalf("could not create test log: %v", err)
	}

	return env
}

// writeScripts installs the stub resource agents and the test fence agent.
// The fence agent goes on PATH; "powering off" a host means signalling the
// remote agent whose pid file sits in this test's directory.
func (e *Environment) writeScripts() {
	e.t.Helper()

	zfs := `#!/bin/sh
op="$1"
state="$HALO_TEST_DIRECTORY/$HALO_TEST_ID.zfs.$OCF_RESKEY_pool"
echo "zfs $op pool=$OCF_RESKEY_pool" >> "$HALO_TEST_LOG"
case "$op" in
start) touch "$state"; exit 0 ;;
stop) rm -f "$state"; exit 0 ;;
monitor) [ -e "$state" ] && exit 0; exit 7 ;;
*) exit 3 ;;
esac
`
	lustre := `#!/bin/sh
op="$1"
mnt=$(echo "$OCF_RESKEY_mountpoint" | tr / _)
state="$HALO_TEST_DIRECTORY/$HALO_TEST_ID.lustre.$mnt"
echo "lustre $op mountpoint=$OCF_RESKEY_mountpoint target=$OCF_RESKEY_target" >> "$HALO_TEST_LOG"
case "$op" in
start) touch "$state"; exit 0 ;;
stop) rm -f "$state"; exit 0 ;;
monitor) [ -e "$state" ] && exit 0; exit 7 ;;
*) exit 3 ;;
esac
`
	fenceTest := fmt.Sprintf(`#!/bin/sh
dir=%q
action=""; target=""
while IFS='=' read -r k v || [ -n "$k" ]; do
	case "$k" in
	action) action="$v" ;;
	target) target="$v" ;;
	esac
done
pidfile="$dir/$target.pid"
case "$action" in
status)
	if [ -e "$pidfile" ] && kill -0 "$(cat "$pidfile")" 2>/dev/null; then
		echo "$target is ON"
	else
		echo "$target is OFF"
	fi
	exit 0 ;;
off)
	[ -e "$pidfile" ] || exit 1
	kill "$(cat "$pidfile")" 2>/dev/null
	rm -f "$pidfile"
	exit 0 ;;
*)
	exit 1 ;;
esac
`, e.Dir)

	scripts := map[string]string{
		filepath.Join(e.OCFRoot, "resource.d", "heartbeat", "ZFS"):  zfs,
		filepath.Join(e.OCFRoot, "resource.d", "lustre", "Lustre"):  lustre,
		filepath.Join(e.Dir, "bin", "fence_test"):                   fenceTest,
	}
	for path, body := range scripts {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			e.t.Fatalf("could not create script dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0755); err != nil {
			e.t.Fatalf("could not write script %q: %v", path, err)
		}
	}

	e.t.Setenv("PATH", filepath.Join(e.Dir, "bin")+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// FreePort asks the kernel for an unused loopback port.
func FreePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not allocate port: %v", err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

// WriteConfig renders cfg into the test directory and returns its path.
func (e *Environment) WriteConfig(cfg *config.Config) string {
	e.t.Helper()
	out, err := config.Marshal(cfg)
	if err != nil {
		e.t.Fatalf("could not marshal config: %v", err)
	}
	path := filepath.Join(e.Dir, e.TestID+".toml")
	if err := os.WriteFile(path, out, 0644); err != nil {
		e.t.Fatalf("could not write config: %v", err)
	}
	return path
}

// SocketPath returns the control socket path for this test.
func (e *Environment) SocketPath() string {
	return filepath.Join(e.Dir, "test.socket")
}

// Context builds the manager context for this test's cluster.
func (e *Environment) Context(configPath string, manage bool) *cluster.Context {
	e.t.Helper()
	ctx, err := cluster.NewContext(cluster.Options{
		ConfigPath:      configPath,
		Socket:          e.SocketPath(),
		Verbose:         true,
		ManageResources: manage,
	}, config.Defaults{Port: 8000, Network: "127.0.0.0/24", OCFRoot: e.OCFRoot})
	if err != nil {
		e.t.Fatalf("could not build context: %v", err)
	}
	return ctx
}

// Cluster assembles the cluster model for this test.
func (e *Environment) Cluster(ctx *cluster.Context) *cluster.Cluster {
	e.t.Helper()
	clus, err := cluster.New(ctx)
	if err != nil {
		e.t.Fatalf("could not build cluster: %v", err)
	}
	return clus
}

// NextAgentLine blocks until the stub scripts log another line, then
// returns it.
func (e *Environment) NextAgentLine() string {
	e.t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		raw, err := os.ReadFile(e.LogPath)
		if err != nil {
			e.t.Fatalf("could not read test log: %v", err)
		}
		rest := string(raw[min(e.logOffset, len(raw)):])
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			e.logOffset += i + 1
			return rest[:i]
		}
		time.Sleep(10 * time.Millisecond)
	}
	e.t.Fatal("timed out waiting for next agent log line")
	return ""
}

// ExpectedAgentLine formats the log line the stub scripts write for one
// operation on one resource.
func ExpectedAgentLine(op string, res *cluster.Resource) string {
	if res.Kind == cluster.KindZpool {
		return fmt.Sprintf("zfs %s pool=%s", op, res.Parameters["pool"])
	}
	return fmt.Sprintf("lustre %s mountpoint=%s target=%s",
		op, res.Parameters["mountpoint"], res.Parameters["target"])
}

// StopResource simulates a resource dying by removing the state file its
// stub script checks during monitor. agentID is the --test-id of the agent
// serving the resource.
func (e *Environment) StopResource(agentID string, res *cluster.Resource) {
	e.t.Helper()

	var name string
	if res.Kind == cluster.KindZpool {
		name = fmt.Sprintf("%s.zfs.%s", agentID, res.Parameters["pool"])
	} else {
		name = fmt.Sprintf("%s.lustre.%s", agentID,
			strings.ReplaceAll(res.Parameters["mountpoint"], "/", "_"))
	}

	path := filepath.Join(e.Dir, name)
	if err := os.Remove(path); err != nil {
		e.t.Fatalf("could not remove state file %q: %v", path, err)
	}
}

// waitReachable polls until a TCP connect to addr succeeds.
func waitReachable(addr string) error {
	dial := func() error {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return err
		}
		return conn.Close()
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 100)
	return backoff.Retry(dial, policy)
}
