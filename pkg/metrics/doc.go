// Package metrics defines halo's Prometheus collectors.
package metrics
