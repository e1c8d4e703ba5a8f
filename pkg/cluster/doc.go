/*
Package cluster holds the in-memory model of the managed cluster: hosts,
resources, and resource groups, assembled once at startup from the
configuration file.

A Resource is one OCF-managed entity (a ZFS pool or a Lustre target) bound
to a home host and, in an HA pair, a failover host. Resources form
dependency trees: targets depend on the pool that holds them. One tree is
one ResourceGroup, whose aggregate status is the worst status among its
members.

Hosts are shared between resources and guarded by their own locks; a
Resource exclusively owns its dependents. The configuration's flat resource
map with symbolic "requires" edges is converted into owned trees in a
two-pass assembly, and any unresolved reference, cycle, or invalid failover
pair is a configuration error rather than a crash.

Resource operations (monitor, start, stop) are remote procedure calls to the
halo-remote agent on the selected host; the AgentCaller interface carries
them so tests can substitute an in-memory transport.
*/
package cluster
