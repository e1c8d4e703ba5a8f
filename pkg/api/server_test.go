package api

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-hpc/halo/pkg/client"
	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/types"
)

func snapshotCluster(t *testing.T, socket string) *cluster.Cluster {
	t.Helper()

	cfg := &config.Config{
		Hosts: []config.Host{{
			Hostname: "h1:8001",
			Resources: map[string]config.Resource{
				"p1": {Kind: cluster.KindZpool, Parameters: map[string]string{"pool": "p1"}},
				"ost1": {
					Kind: cluster.KindLustre,
					Parameters: map[string]string{
						"mountpoint": "/mnt/ost1", "target": "p1/ost1", "kind": "ost",
					},
					Requires: "p1",
				},
				"ost2": {
					Kind: cluster.KindLustre,
					Parameters: map[string]string{
						"mountpoint": "/mnt/ost2", "target": "p1/ost2", "kind": "ost",
					},
					Requires: "p1",
				},
			},
		}},
	}

	clus, err := cluster.FromConfig(cfg, &cluster.Context{
		Options:  cluster.Options{Socket: socket},
		Defaults: config.Defaults{Port: 8000},
		Out:      &bytes.Buffer{},
	})
	require.NoError(t, err)
	return clus
}

func TestMonitorSnapshot(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "halo.socket")
	clus := snapshotCluster(t, socket)

	members := clus.Groups()[0].Members()
	members[0].SetStatus(types.StatusRunningOnHome)
	members[1].SetStatus(types.StatusRunningOnHome)
	members[2].SetStatus(types.StatusStopped)

	server := NewServer(clus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(ctx) }()

	// The server removes any stale socket and binds before serving; give it
	// a moment to come up.
	var c *client.Client
	require.Eventually(t, func() bool {
		var err error
		c, err = client.New(socket)
		if err != nil {
			return false
		}
		_, err = c.Monitor(context.Background())
		if err != nil {
			c.Close()
			return false
		}
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer c.Close()

	state, err := c.Monitor(context.Background())
	require.NoError(t, err)

	// One entry per resource, in cluster enumeration order: pool first,
	// then its targets in resource-id order.
	require.Len(t, state.Resources, 3)
	assert.Equal(t, int32(types.StatusRunningOnHome), state.Resources[0].Status)
	assert.Equal(t, "pool", state.Resources[0].Parameters[0].Key)
	assert.Equal(t, "p1", state.Resources[0].Parameters[0].Value)

	assert.Equal(t, int32(types.StatusStopped), state.Resources[2].Status)
	var target string
	for _, kv := range state.Resources[2].Parameters {
		if kv.Key == "target" {
			target = kv.Value
		}
	}
	assert.Equal(t, "p1/ost2", target)

	cancel()
	require.NoError(t, <-errCh)
}

func TestRunRemovesStaleSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "halo.socket")
	clus := snapshotCluster(t, socket)

	// Leave a stale file where the socket goes.
	require.NoError(t, writeFile(socket, "stale"))

	server := NewServer(clus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(ctx) }()

	require.Eventually(t, func() bool {
		c, err := client.New(socket)
		if err != nil {
			return false
		}
		defer c.Close()
		_, err = c.Monitor(context.Background())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
}

func TestRunBindFailure(t *testing.T) {
	clus := snapshotCluster(t, filepath.Join(t.TempDir(), "missing-dir", "halo.socket"))

	err := NewServer(clus).Run(context.Background())
	assert.Error(t, err)
}

func TestPrintStatusRendering(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ignored.socket")
	clus := snapshotCluster(t, socket)

	members := clus.Groups()[0].Members()
	members[0].SetStatus(types.StatusRunningOnHome)
	members[1].SetStatus(types.StatusStopped)
	members[2].SetStatus(types.StatusRunningOnAway)

	state, err := NewServer(clus).Monitor(context.Background(), nil)
	require.NoError(t, err)

	var out bytes.Buffer
	client.PrintStatus(&out, state, false)
	assert.Equal(t,
		"OK: [pool: p1]\n"+
			"Stopped: [kind: ost, mountpoint: /mnt/ost1, target: p1/ost1]\n"+
			"Failed over: [kind: ost, mountpoint: /mnt/ost2, target: p1/ost2]\n",
		out.String())

	out.Reset()
	client.PrintStatus(&out, state, true)
	assert.NotContains(t, out.String(), "OK:")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
