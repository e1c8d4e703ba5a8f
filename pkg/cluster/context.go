package cluster

import (
	"io"
	"os"

	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/security"
)

// Options are the command-line settings shared by every halo command.
type Options struct {
	// ConfigPath overrides the default configuration file location.
	ConfigPath string

	// Socket overrides the default control socket path.
	Socket string

	Verbose bool
	MTLS    bool

	// ManageResources selects manage mode (actively start and fail over
	// resources) instead of the default observe mode.
	ManageResources bool
}

// Context carries the process-wide state shared between the lifecycle
// engine, the control channel, and the CLI: the resolved options and
// environment defaults, the verbose output stream, and the transport used
// for resource agent operations.
type Context struct {
	Options  Options
	Defaults config.Defaults

	// Out receives the verbose status-transition lines. Tests substitute a
	// log.LineBuffer to consume them.
	Out io.Writer

	// Caller performs resource agent operations against remote hosts.
	Caller AgentCaller
}

// NewContext resolves a Context from options and environment defaults. When
// mTLS is enabled the client certificate material is loaded here, once.
func NewContext(opts Options, defaults config.Defaults) (*Context, error) {
	c := &Context{
		Options:  opts,
		Defaults: defaults,
		Out:      os.Stdout,
	}

	if opts.MTLS {
		tlsConfig, err := security.ClientTLSConfig(defaults)
		if err != nil {
			return nil, err
		}
		c.Caller = &grpcCaller{tlsConfig: tlsConfig}
	} else {
		c.Caller = &grpcCaller{}
	}

	return c, nil
}

// ConfigPath returns the configuration file to load.
func (c *Context) ConfigPath() string {
	if c.Options.ConfigPath != "" {
		return c.Options.ConfigPath
	}
	return c.Defaults.ConfigPath
}

// SocketPath returns the control socket path.
func (c *Context) SocketPath() string {
	if c.Options.Socket != "" {
		return c.Options.Socket
	}
	return c.Defaults.Socket
}
