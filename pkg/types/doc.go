/*
Package types defines the status vocabularies shared across halo.

Two status spaces exist on purpose and are mapped into each other only at
the lifecycle engine boundary: OcfStatus is the outcome of one resource
agent operation on one host (the script's exit code); ResourceStatus is the
manager's conclusion about where a resource is running, totally ordered
worst-first so that a group's aggregate is the minimum over its members.
*/
package types
