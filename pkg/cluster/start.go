package cluster

import (
	"context"
	"sync"

	"github.com/halo-hpc/halo/pkg/types"
)

// StartIfNeededRecursive starts this resource at loc unless it is already
// running, then starts its dependents. Dependents are only attempted when
// this resource is actually up: a failed parent start prunes its whole
// branch for this attempt. Sibling branches proceed concurrently.
func (r *Resource) StartIfNeededRecursive(ctx context.Context, loc types.Location) {
	if !r.IsRunning() {
		status, err := r.Start(ctx, loc)
		switch {
		case err != nil:
			r.SetStatus(types.StatusUnknown)
		case status == types.OcfSuccess:
			r.SetRunningOn(loc)
		default:
			r.SetStatus(types.StatusStopped)
		}
	}

	if !r.IsRunning() {
		return
	}

	var wg sync.WaitGroup
	for _, dep := range r.Dependents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dep.StartIfNeededRecursive(ctx, loc)
		}()
	}
	wg.Wait()
}
