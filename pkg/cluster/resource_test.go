package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/types"
)

func TestParamsString(t *testing.T) {
	res := newResource(KindLustre, map[string]string{
		"target":     "mgspool/mgs",
		"kind":       "mgs",
		"mountpoint": "/mnt/mgs",
	}, nil, nil, nil, testContext(newFakeAgent()))

	// Keys come out in lexicographic order regardless of insertion order.
	assert.Equal(t,
		`{"kind": "mgs", "mountpoint": "/mnt/mgs", "target": "mgspool/mgs"}`,
		res.ParamsString())

	empty := newResource(KindZpool, map[string]string{}, nil, nil, nil, testContext(newFakeAgent()))
	assert.Equal(t, "{}", empty.ParamsString())
}

func TestSetStatusEmitsTransitionOnce(t *testing.T) {
	buf := log.NewLineBuffer()
	ctx := testContext(newFakeAgent())
	ctx.Options.Verbose = true
	ctx.Out = buf

	res := newResource(KindZpool, map[string]string{"pool": "p1"}, nil, nil, nil, ctx)

	res.SetStatus(types.StatusStopped)
	assert.Equal(t,
		`Updating status of resource {"pool": "p1"} from Unknown to Stopped`,
		buf.ReadLine())

	// Setting the same status again must not emit a second line; the next
	// real transition must be the next line read.
	res.SetStatus(types.StatusStopped)
	res.SetStatus(types.StatusRunningOnHome)
	assert.Equal(t,
		`Updating status of resource {"pool": "p1"} from Stopped to RunningOnHome`,
		buf.ReadLine())
}

func TestSetStatusQuietWithoutVerbose(t *testing.T) {
	buf := log.NewLineBuffer()
	ctx := testContext(newFakeAgent())
	ctx.Out = buf

	res := newResource(KindZpool, map[string]string{"pool": "p1"}, nil, nil, nil, ctx)
	res.SetStatus(types.StatusStopped)

	assert.Equal(t, types.StatusStopped, res.GetStatus())
	// Nothing may have been written.
	done := make(chan struct{})
	go func() {
		buf.ReadLine()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("verbose line emitted while verbose output is off")
	case <-time.After(50 * time.Millisecond):
	}
}

func buildGroup(t *testing.T) *ResourceGroup {
	t.Helper()
	clus, err := FromConfig(oneHostConfig("h1"), testContext(newFakeAgent()))
	require.NoError(t, err)
	require.Len(t, clus.Groups(), 1)
	return clus.Groups()[0]
}

func TestGroupBFSOrder(t *testing.T) {
	group := buildGroup(t)

	var visited []string
	for res := range group.Resources() {
		if pool, ok := res.Parameters["pool"]; ok {
			visited = append(visited, pool)
		} else {
			visited = append(visited, res.Parameters["target"])
		}
	}

	// Parent precedes children; siblings come in resource-id order.
	assert.Equal(t, []string{"p1", "p1/ost1", "p1/ost2"}, visited)

	// Each resource appears exactly once.
	seen := map[string]int{}
	for _, id := range visited {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "resource %s visited %d times", id, n)
	}
}

func TestGroupAggregateStatus(t *testing.T) {
	group := buildGroup(t)
	members := group.Members()
	require.Len(t, members, 3)

	members[0].SetStatus(types.StatusRunningOnHome)
	members[1].SetStatus(types.StatusRunningOnHome)
	members[2].SetStatus(types.StatusStopped)
	assert.Equal(t, types.StatusStopped, group.UpdateOverall())

	members[1].SetStatus(types.StatusUnknown)
	assert.Equal(t, types.StatusUnknown, group.UpdateOverall())

	for _, m := range members {
		m.SetStatus(types.StatusRunningOnHome)
	}
	assert.Equal(t, types.StatusRunningOnHome, group.UpdateOverall())
}

func TestGroupName(t *testing.T) {
	group := buildGroup(t)
	assert.Equal(t, "p1", group.Name())
}
