// Package api serves the manager's control channel: a gRPC endpoint on a
// local unix socket whose single Monitor method returns a snapshot of every
// resource's status and parameters in cluster enumeration order.
package api
