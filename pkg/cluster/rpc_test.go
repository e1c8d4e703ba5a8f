package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-hpc/halo/pkg/types"
)

func testCluster(t *testing.T, fake *fakeAgent) *Cluster {
	t.Helper()
	clus, err := FromConfig(oneHostConfig("h1:8001"), testContext(fake))
	require.NoError(t, err)
	return clus
}

func TestMonitorMapsOcfStatuses(t *testing.T) {
	fake := newFakeAgent()
	clus := testCluster(t, fake)
	pool := clus.Groups()[0].Root

	status, err := pool.Monitor(context.Background(), types.Home)
	require.NoError(t, err)
	assert.Equal(t, types.OcfErrNotRunning, status)

	fake.setRunning("h1:8001", "p1", true)
	status, err = pool.Monitor(context.Background(), types.Home)
	require.NoError(t, err)
	assert.Equal(t, types.OcfSuccess, status)
}

func TestRemoteErrorSurfacesAsGeneric(t *testing.T) {
	fake := newFakeAgent()
	fake.remoteErr["h1:8001|p1"] = "could not run resource agent"
	clus := testCluster(t, fake)

	// The RPC itself succeeded, so there is no transport error; the remote
	// failure comes back as a generic OCF error.
	status, err := clus.Groups()[0].Root.Monitor(context.Background(), types.Home)
	require.NoError(t, err)
	assert.Equal(t, types.OcfErrGeneric, status)
}

func TestTransportErrorPropagates(t *testing.T) {
	fake := newFakeAgent()
	fake.unreachable["h1:8001"] = true
	clus := testCluster(t, fake)

	_, err := clus.Groups()[0].Root.Monitor(context.Background(), types.Home)
	assert.Error(t, err)
}

func TestAwayWithoutFailoverHost(t *testing.T) {
	clus := testCluster(t, newFakeAgent())

	_, err := clus.Groups()[0].Root.Monitor(context.Background(), types.Away)
	assert.ErrorContains(t, err, "no failover host")
}

func TestStartIfNeededRecursive(t *testing.T) {
	fake := newFakeAgent()
	clus := testCluster(t, fake)
	group := clus.Groups()[0]

	group.Root.StartIfNeededRecursive(context.Background(), types.Home)

	for res := range group.Resources() {
		assert.Equal(t, types.StatusRunningOnHome, res.GetStatus())
	}
	assert.Equal(t, 1, fake.starts("h1:8001", "p1"))
	assert.Equal(t, 1, fake.starts("h1:8001", "p1/ost1"))
	assert.Equal(t, 1, fake.starts("h1:8001", "p1/ost2"))
}

func TestStartSkipsAlreadyRunning(t *testing.T) {
	fake := newFakeAgent()
	clus := testCluster(t, fake)
	group := clus.Groups()[0]

	group.Root.SetStatus(types.StatusRunningOnHome)
	group.Root.StartIfNeededRecursive(context.Background(), types.Home)

	// The running root is not restarted, but its stopped dependents are.
	assert.Equal(t, 0, fake.starts("h1:8001", "p1"))
	assert.Equal(t, 1, fake.starts("h1:8001", "p1/ost1"))
}

func TestStartDoesNotTouchChildrenOfFailedParent(t *testing.T) {
	fake := newFakeAgent()
	fake.failStart["h1:8001|p1"] = true
	clus := testCluster(t, fake)
	group := clus.Groups()[0]

	group.Root.StartIfNeededRecursive(context.Background(), types.Home)

	assert.Equal(t, types.StatusStopped, group.Root.GetStatus())
	assert.Equal(t, 1, fake.starts("h1:8001", "p1"))
	assert.Equal(t, 0, fake.starts("h1:8001", "p1/ost1"))
	assert.Equal(t, 0, fake.starts("h1:8001", "p1/ost2"))
}

func TestStartTransportErrorLeavesUnknown(t *testing.T) {
	fake := newFakeAgent()
	fake.unreachable["h1:8001"] = true
	clus := testCluster(t, fake)
	group := clus.Groups()[0]

	group.Root.StartIfNeededRecursive(context.Background(), types.Home)

	assert.Equal(t, types.StatusUnknown, group.Root.GetStatus())
}

func TestStopResource(t *testing.T) {
	fake := newFakeAgent()
	fake.setRunning("h1:8001", "p1", true)
	clus := testCluster(t, fake)
	pool := clus.Groups()[0].Root

	status, err := pool.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.OcfSuccess, status)

	status, err = pool.Monitor(context.Background(), types.Home)
	require.NoError(t, err)
	assert.Equal(t, types.OcfErrNotRunning, status)
}
