package remote

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/types"
)

// ocfEnv renders the environment for a resource agent invocation. Every
// request argument becomes an OCF_RESKEY_<key> variable per the resource
// agent calling convention.
func ocfEnv(ocfRoot, testID string, args []*proto.KeyValue) []string {
	env := append(os.Environ(),
		"OCF_ROOT="+ocfRoot,
		"HALO_TEST_ID="+testID,
	)
	for _, arg := range args {
		env = append(env, fmt.Sprintf("OCF_RESKEY_%s=%s", arg.Key, arg.Value))
	}
	return env
}

// doOperation executes a resource agent script, returning its exit code and
// combined output.
//
// The resource identifier (e.g. "heartbeat/ZFS") names the script relative
// to <ocfRoot>/resource.d/. The operation is passed as the script's single
// argument. A child that terminated without an exit code (killed by a
// signal) is an execution error, not a status.
func doOperation(ocfRoot, testID, resource string, op types.AgentOp, args []*proto.KeyValue) (int, string, error) {
	if testID == "" {
		testID = strconv.Itoa(os.Getpid())
	}

	script := filepath.Join(ocfRoot, "resource.d", resource)
	cmd := exec.Command(script, op.String())
	cmd.Env = ocfEnv(ocfRoot, testID, args)

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exit *exec.ExitError
		if !errors.As(err, &exit) {
			return 0, string(out), fmt.Errorf("could not run resource agent %q: %w", script, err)
		}
		code := exit.ExitCode()
		if code < 0 {
			return 0, string(out), fmt.Errorf("could not get exit status from resource agent %q", script)
		}
		return code, string(out), nil
	}

	return 0, string(out), nil
}
