package framework

import (
	"context"
	"time"

	"github.com/halo-hpc/halo/pkg/api"
	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/engine"
	"github.com/halo-hpc/halo/pkg/log"
)

// StartManager runs the lifecycle engine over clus in the background until
// the test ends.
func (e *Environment) StartManager(clus *cluster.Cluster) {
	e.t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	e.t.Cleanup(cancel)
	go engine.New(clus).Run(ctx)
}

// StartControlChannel serves the manager's control socket in the background
// until the test ends.
func (e *Environment) StartControlChannel(clus *cluster.Cluster) {
	e.t.Helper()

	server := api.NewServer(clus)
	ctx, cancel := context.WithCancel(context.Background())
	e.t.Cleanup(cancel)

	go func() {
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			e.t.Errorf("control channel server failed: %v", err)
		}
	}()
}

// NextManagerLine reads the manager's next verbose status line from buf,
// failing the test if none arrives in time.
func (e *Environment) NextManagerLine(buf *log.LineBuffer) string {
	e.t.Helper()

	lines := make(chan string, 1)
	go func() { lines <- buf.ReadLine() }()

	select {
	case line := <-lines:
		return line
	case <-time.After(30 * time.Second):
		e.t.Fatal("timed out waiting for manager status line")
		return ""
	}
}
