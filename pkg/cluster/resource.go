package cluster

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/types"
)

// Resource kinds understood by the manager.
const (
	KindZpool  = "heartbeat/ZFS"
	KindLustre = "lustre/Lustre"
)

// Resource is one OCF-managed resource: a ZFS pool or a Lustre target.
//
// A Resource exclusively owns its dependents: Lustre targets are dependents
// of the zpool that hosts them and must be started after it. Hosts are
// shared; every resource in a tree carries the same home/failover pair.
type Resource struct {
	Kind       string
	Parameters map[string]string

	// Dependents are the resources that require this one to be running.
	Dependents []*Resource

	home     *Host
	failover *Host
	context  *Context

	mu     sync.Mutex
	status types.ResourceStatus
}

func newResource(kind string, params map[string]string, deps []*Resource, home, failover *Host, context *Context) *Resource {
	return &Resource{
		Kind:       kind,
		Parameters: params,
		Dependents: deps,
		home:       home,
		failover:   failover,
		context:    context,
		status:     types.StatusUnknown,
	}
}

// Home returns the resource's primary host.
func (r *Resource) Home() *Host { return r.home }

// Failover returns the resource's partner host, or nil in a non-HA cluster.
func (r *Resource) Failover() *Host { return r.failover }

func (r *Resource) GetStatus() types.ResourceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SetStatus records a new status. When the value changes and verbose output
// is enabled, a single transition line is written to the context's output
// stream.
func (r *Resource) SetStatus(status types.ResourceStatus) {
	r.mu.Lock()
	old := r.status
	r.status = status
	r.mu.Unlock()

	if r.context.Options.Verbose && old != status {
		log.WriteLine(r.context.Out, r.StatusUpdateString(old, status))
	}
}

// StatusUpdateString formats the verbose transition line for a status change.
func (r *Resource) StatusUpdateString(old, new types.ResourceStatus) string {
	return fmt.Sprintf("Updating status of resource %s from %s to %s", r.ParamsString(), old, new)
}

// IsRunning reports whether the resource is currently running on either host.
func (r *Resource) IsRunning() bool {
	return r.GetStatus().IsRunning()
}

// SetRunningOn marks the resource as running at the given location.
func (r *Resource) SetRunningOn(loc types.Location) {
	r.SetStatus(loc.RunningStatus())
}

// SortedParameters returns the parameter map as key/value pairs in
// lexicographic key order.
func (r *Resource) SortedParameters() [][2]string {
	keys := make([]string, 0, len(r.Parameters))
	for k := range r.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, r.Parameters[k]})
	}
	return pairs
}

// ParamsString renders the parameter map in a predictable way: a JSON-like
// object with keys in lexicographic order.
func (r *Resource) ParamsString() string {
	var b strings.Builder
	b.WriteString("{")
	for i, kv := range r.SortedParameters() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %q", kv[0], kv[1])
	}
	b.WriteString("}")
	return b.String()
}

// ResourceGroup is one zpool together with every Lustre target that depends
// on it. The group carries an aggregate status derived from its members.
type ResourceGroup struct {
	Root *Resource

	mu      sync.Mutex
	overall types.ResourceStatus
}

// NewResourceGroup wraps a dependency tree rooted at a zpool.
func NewResourceGroup(root *Resource) (*ResourceGroup, error) {
	if root.Kind != KindZpool {
		return nil, fmt.Errorf("resource group root must be a %s resource, got %q", KindZpool, root.Kind)
	}
	return &ResourceGroup{
		Root:    root,
		overall: types.StatusUnknown,
	}, nil
}

// Name identifies the group in logs by its pool.
func (g *ResourceGroup) Name() string {
	if pool, ok := g.Root.Parameters["pool"]; ok {
		return pool
	}
	return g.Root.Kind
}

// HighAvailability reports whether this group has a failover host.
func (g *ResourceGroup) HighAvailability() bool {
	return g.Root.failover != nil
}

// Resources visits every resource in the group in breadth-first order: the
// root first, then its dependents level by level.
func (g *ResourceGroup) Resources() iter.Seq[*Resource] {
	return func(yield func(*Resource) bool) {
		queue := []*Resource{g.Root}
		for len(queue) > 0 {
			res := queue[0]
			queue = queue[1:]
			if !yield(res) {
				return
			}
			queue = append(queue, res.Dependents...)
		}
	}
}

// Members returns the group's resources as a slice, in traversal order.
func (g *ResourceGroup) Members() []*Resource {
	var members []*Resource
	for res := range g.Resources() {
		members = append(members, res)
	}
	return members
}

// Overall returns the group's aggregate status.
func (g *ResourceGroup) Overall() types.ResourceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.overall
}

// SetOverall records the group's aggregate status.
func (g *ResourceGroup) SetOverall(status types.ResourceStatus) {
	g.mu.Lock()
	g.overall = status
	g.mu.Unlock()
}

// UpdateOverall recomputes the aggregate as the worst member status and
// returns it.
func (g *ResourceGroup) UpdateOverall() types.ResourceStatus {
	var statuses []types.ResourceStatus
	for res := range g.Resources() {
		statuses = append(statuses, res.GetStatus())
	}
	worst := types.GetWorst(statuses)
	g.SetOverall(worst)
	return worst
}
