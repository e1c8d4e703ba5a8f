package cluster

import (
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/halo-hpc/halo/pkg/config"
)

// Cluster is the in-memory model of the managed cluster. Where the
// configuration views a cluster as hosts that own resources, the in-memory
// model views it as resource groups that know which hosts they expect to run
// on; that shape is the convenient one for cluster operations.
type Cluster struct {
	groups []*ResourceGroup

	// hosts is keyed by Host.ID(), which differs from the raw hostname in
	// the test environment.
	hosts map[string]*Host

	numZpools  int
	numTargets int

	Context *Context
}

// New loads the configuration named by the context and assembles a Cluster
// from it.
func New(context *Context) (*Cluster, error) {
	cfg, err := config.Load(context.ConfigPath())
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, context)
}

// FromConfig assembles a Cluster from a parsed configuration document.
// Assembly is order-independent: resource dependency edges resolve
// symbolically, so any permutation of the input produces the same model.
func FromConfig(cfg *config.Config, context *Context) (*Cluster, error) {
	c := &Cluster{
		hosts:   make(map[string]*Host),
		Context: context,
	}

	// Pass one: build every Host before any resource references one.
	byHostname := make(map[string]*Host, len(cfg.Hosts))
	for _, hostCfg := range cfg.Hosts {
		host, err := HostFromConfig(hostCfg, context.Defaults)
		if err != nil {
			return nil, err
		}
		if _, dup := byHostname[hostCfg.Hostname]; dup {
			return nil, fmt.Errorf("duplicate host %q in configuration", hostCfg.Hostname)
		}
		byHostname[hostCfg.Hostname] = host
	}

	if err := validatePairs(cfg.FailoverPairs, byHostname); err != nil {
		return nil, err
	}

	for _, hostCfg := range cfg.Hosts {
		home := byHostname[hostCfg.Hostname]

		var failover *Host
		if partner := failoverPartner(cfg.FailoverPairs, hostCfg.Hostname); partner != "" {
			failover = byHostname[partner]
		}

		groups, zpools, targets, err := hostResourceGroups(hostCfg, home, failover, context)
		if err != nil {
			return nil, err
		}
		c.groups = append(c.groups, groups...)
		c.numZpools += zpools
		c.numTargets += targets
	}

	// Re-key by the stable ID so test-harness hosts stay uniquely
	// addressable.
	for _, host := range byHostname {
		c.hosts[host.ID()] = host
	}

	return c, nil
}

// hostResourceGroups converts one host's resource map into dependency trees,
// one ResourceGroup per root. The input is flat with symbolic "requires"
// edges; the output trees exclusively own their children.
func hostResourceGroups(hostCfg config.Host, home, failover *Host, context *Context) ([]*ResourceGroup, int, int, error) {
	type node struct {
		id       string
		cfg      config.Resource
		children []*node
	}

	nodes := make(map[string]*node, len(hostCfg.Resources))
	ids := make([]string, 0, len(hostCfg.Resources))
	for id, res := range hostCfg.Resources {
		nodes[id] = &node{id: id, cfg: res}
		ids = append(ids, id)
	}
	// The resource map has no inherent order; sort so sibling order is
	// stable across loads.
	sort.Strings(ids)

	var roots []*node
	for _, id := range ids {
		n := nodes[id]
		if n.cfg.Requires == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[n.cfg.Requires]
		if !ok {
			return nil, 0, 0, fmt.Errorf("host %q: resource %q requires unknown resource %q",
				hostCfg.Hostname, id, n.cfg.Requires)
		}
		if parent == n {
			return nil, 0, 0, fmt.Errorf("host %q: resource %q requires itself", hostCfg.Hostname, id)
		}
		parent.children = append(parent.children, n)
	}

	var zpools, targets int
	var validate func(n *node) error
	validate = func(n *node) error {
		switch n.cfg.Kind {
		case KindZpool:
			if _, ok := n.cfg.Parameters["pool"]; !ok {
				return fmt.Errorf("host %q: zpool resource %q needs a pool parameter", hostCfg.Hostname, n.id)
			}
			zpools++
		case KindLustre:
			for _, p := range []string{"mountpoint", "target", "kind"} {
				if _, ok := n.cfg.Parameters[p]; !ok {
					return fmt.Errorf("host %q: lustre resource %q needs a %s parameter", hostCfg.Hostname, n.id, p)
				}
			}
			targets++
		default:
			return fmt.Errorf("host %q: resource %q has unsupported kind %q", hostCfg.Hostname, n.id, n.cfg.Kind)
		}
		for _, child := range n.children {
			if err := validate(child); err != nil {
				return err
			}
		}
		return nil
	}

	// Pass two: move each node into its tree. Every resource in a tree
	// inherits the root's home/failover pair.
	var build func(n *node) *Resource
	build = func(n *node) *Resource {
		deps := make([]*Resource, 0, len(n.children))
		for _, child := range n.children {
			deps = append(deps, build(child))
		}
		return newResource(n.cfg.Kind, n.cfg.Parameters, deps, home, failover, context)
	}

	visited := 0
	var count func(n *node)
	count = func(n *node) {
		visited++
		for _, child := range n.children {
			count(child)
		}
	}

	groups := make([]*ResourceGroup, 0, len(roots))
	for _, root := range roots {
		if err := validate(root); err != nil {
			return nil, 0, 0, err
		}
		count(root)
		group, err := NewResourceGroup(build(root))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("host %q: %w", hostCfg.Hostname, err)
		}
		groups = append(groups, group)
	}

	if visited != len(nodes) {
		return nil, 0, 0, fmt.Errorf("host %q: resource dependencies form a cycle", hostCfg.Hostname)
	}

	return groups, zpools, targets, nil
}

// validatePairs checks that every failover pair names two distinct known
// hosts and that no host appears in more than one pair.
func validatePairs(pairs [][]string, hosts map[string]*Host) error {
	seen := make(map[string]bool)
	for _, pair := range pairs {
		if len(pair) != 2 {
			return fmt.Errorf("failover pair %v must name exactly two hosts", pair)
		}
		if pair[0] == pair[1] {
			return fmt.Errorf("failover pair %v pairs a host with itself", pair)
		}
		for _, name := range pair {
			if _, ok := hosts[name]; !ok {
				return fmt.Errorf("failover pair %v names unknown host %q", pair, name)
			}
			if seen[name] {
				return fmt.Errorf("host %q appears in more than one failover pair", name)
			}
			seen[name] = true
		}
	}
	return nil
}

// failoverPartner returns name's partner from the pair list, or "" when it
// has none.
func failoverPartner(pairs [][]string, name string) string {
	for _, pair := range pairs {
		if name == pair[0] {
			return pair[1]
		}
		if name == pair[1] {
			return pair[0]
		}
	}
	return ""
}

// Groups returns the cluster's resource groups.
func (c *Cluster) Groups() []*ResourceGroup { return c.groups }

func (c *Cluster) NumZpools() int { return c.numZpools }

func (c *Cluster) NumTargets() int { return c.numTargets }

// Resources enumerates every resource across all groups: groups in
// configuration order, breadth-first within each group. This is the
// iteration order control-channel snapshots use.
func (c *Cluster) Resources() iter.Seq[*Resource] {
	return func(yield func(*Resource) bool) {
		for _, group := range c.groups {
			for res := range group.Resources() {
				if !yield(res) {
					return
				}
			}
		}
	}
}

// ZpoolResources enumerates the cluster's pool resources.
func (c *Cluster) ZpoolResources() iter.Seq[*Resource] {
	return c.filtered(func(r *Resource) bool { return r.Kind == KindZpool })
}

// LustreResources enumerates the cluster's Lustre targets.
func (c *Cluster) LustreResources() iter.Seq[*Resource] {
	return c.filtered(func(r *Resource) bool { return r.Kind == KindLustre })
}

// LustreResourcesNoMGS enumerates Lustre targets other than the MGS.
func (c *Cluster) LustreResourcesNoMGS() iter.Seq[*Resource] {
	return c.filtered(func(r *Resource) bool {
		return r.Kind == KindLustre && r.Parameters["kind"] != "mgs"
	})
}

// MGS returns the cluster's management target, or nil when none is
// configured.
func (c *Cluster) MGS() *Resource {
	for res := range c.LustreResources() {
		if res.Parameters["kind"] == "mgs" {
			return res
		}
	}
	return nil
}

func (c *Cluster) filtered(keep func(*Resource) bool) iter.Seq[*Resource] {
	return func(yield func(*Resource) bool) {
		for res := range c.Resources() {
			if keep(res) && !yield(res) {
				return
			}
		}
	}
}

// Hosts returns the host directory keyed by Host.ID().
func (c *Cluster) Hosts() map[string]*Host { return c.hosts }

// GetHost looks a host up by its stable ID.
func (c *Cluster) GetHost(id string) (*Host, bool) {
	h, ok := c.hosts[id]
	return h, ok
}

// PrintSummary writes a human-readable description of the assembled model,
// used by the validate subcommand.
func (c *Cluster) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "=== Resource Groups ===")
	for _, group := range c.groups {
		for res := range group.Resources() {
			fmt.Fprintln(w, res.ParamsString())
			fmt.Fprintf(w, "\thome node: %s\n", res.Home().ID())
			if res.Failover() != nil {
				fmt.Fprintf(w, "\tfailover node: %s\n", res.Failover().ID())
			} else {
				fmt.Fprintf(w, "\tfailover node: none\n")
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Hosts ===")
	ids := make([]string, 0, len(c.hosts))
	for id := range c.hosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		host := c.hosts[id]
		fmt.Fprintln(w, host)
		if host.FenceAgent() != nil {
			fmt.Fprintf(w, "\tfence agent: %T\n", host.FenceAgent())
		} else {
			fmt.Fprintf(w, "\tfence agent: none\n")
		}
	}
}
