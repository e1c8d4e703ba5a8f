package remote

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/types"
)

// writeScript installs a resource agent script under root/resource.d/.
func writeScript(t *testing.T, root, name, body string) {
	t.Helper()
	path := filepath.Join(root, "resource.d", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
}

func TestDoOperationExitCodes(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "heartbeat/ZFS", "#!/bin/sh\nexit 7\n")

	code, _, err := doOperation(root, "t1", "heartbeat/ZFS", types.OpMonitor, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, code)
	assert.Equal(t, types.OcfErrNotRunning, types.OcfStatusFromCode(code))
}

func TestDoOperationPassesConvention(t *testing.T) {
	root := t.TempDir()
	outFile := filepath.Join(t.TempDir(), "env.out")

	// The script records its argument and the OCF environment it was given.
	writeScript(t, root, "lustre/Lustre",
		"#!/bin/sh\n"+
			"echo \"op=$1\" > "+outFile+"\n"+
			"echo \"mountpoint=$OCF_RESKEY_mountpoint\" >> "+outFile+"\n"+
			"echo \"target=$OCF_RESKEY_target\" >> "+outFile+"\n"+
			"echo \"root=$OCF_ROOT\" >> "+outFile+"\n"+
			"echo \"test_id=$HALO_TEST_ID\" >> "+outFile+"\n"+
			"exit 0\n")

	args := []*proto.KeyValue{
		{Key: "mountpoint", Value: "/mnt/ost1"},
		{Key: "target", Value: "p1/ost1"},
	}
	code, _, err := doOperation(root, "mytest", "lustre/Lustre", types.OpStart, args)
	require.NoError(t, err)
	assert.Zero(t, code)

	out, err := os.ReadFile(outFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, []string{
		"op=start",
		"mountpoint=/mnt/ost1",
		"target=p1/ost1",
		"root=" + root,
		"test_id=mytest",
	}, lines)
}

func TestDoOperationDefaultsTestIDToPid(t *testing.T) {
	root := t.TempDir()
	outFile := filepath.Join(t.TempDir(), "id.out")
	writeScript(t, root, "heartbeat/ZFS",
		"#!/bin/sh\necho \"$HALO_TEST_ID\" > "+outFile+"\nexit 0\n")

	_, _, err := doOperation(root, "", "heartbeat/ZFS", types.OpMonitor, nil)
	require.NoError(t, err)

	out, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(string(out)))
}

func TestDoOperationMissingScript(t *testing.T) {
	_, _, err := doOperation(t.TempDir(), "t", "heartbeat/ZFS", types.OpMonitor, nil)
	assert.ErrorContains(t, err, "could not run resource agent")
}

func TestServerOperation(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "heartbeat/ZFS", "#!/bin/sh\n[ \"$1\" = monitor ] && exit 0\nexit 1\n")

	server, err := NewServer(Config{
		Network:  "127.0.0.0/8",
		OCFRoot:  root,
		TestID:   "srv",
		Defaults: config.Defaults{Port: 8000, Network: "127.0.0.0/8", OCFRoot: root},
	})
	require.NoError(t, err)

	reply, err := server.Operation(context.Background(), &proto.OperationRequest{
		Op:       proto.OpMonitor,
		Resource: "heartbeat/ZFS",
	})
	require.NoError(t, err)
	assert.Empty(t, reply.Error)
	assert.Equal(t, int32(0), reply.Status)

	reply, err = server.Operation(context.Background(), &proto.OperationRequest{
		Op:       proto.OpStop,
		Resource: "heartbeat/ZFS",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), reply.Status)

	// A missing script is a remote execution error, reported in-band.
	reply, err = server.Operation(context.Background(), &proto.OperationRequest{
		Op:       proto.OpStart,
		Resource: "lustre/Lustre",
	})
	require.NoError(t, err)
	assert.Contains(t, reply.Error, "could not run resource agent")
}

func TestListeningAddress(t *testing.T) {
	// Every machine has a loopback address.
	addr, err := listeningAddress("127.0.0.0/8")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr)

	_, err = listeningAddress("not-a-cidr")
	assert.ErrorContains(t, err, "invalid network")

	// TEST-NET-3 should not be configured on any interface here.
	_, err = listeningAddress("203.0.113.0/24")
	assert.ErrorContains(t, err, "could not find address")
}
