// Package security loads the TLS material for mutual authentication
// between the manager and remote agents.
package security
