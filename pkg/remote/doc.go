/*
Package remote implements the halo-remote agent: a small gRPC server that
runs on every managed host and executes OCF resource agent scripts on behalf
of the manager.

A request names an operation (monitor, start, stop), a resource agent
identifier such as "lustre/Lustre", and a set of key-value parameters. The
agent executes <OCF_ROOT>/resource.d/<identifier> with the operation as its
single argument and the parameters in OCF_RESKEY_* environment variables,
then reports the script's exit code. Execution failures (missing script,
signal-terminated child) are reported in-band so the manager can tell them
apart from an unreachable host.

The agent picks its listen address from a configured CIDR, which keeps it on
the management network on multi-homed storage servers.
*/
package remote
