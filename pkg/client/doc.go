// Package client is the CLI side of the manager's control channel.
package client
