package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk cluster description.
//
// FailoverPairs is declared before Hosts so that a marshalled document puts
// the top-level key ahead of the [[hosts]] tables, where TOML requires it.
type Config struct {
	FailoverPairs [][]string `toml:"failover_pairs,omitempty"`
	Hosts         []Host     `toml:"hosts"`
}

// Host describes one managed server and the resources it is home to.
// Scalar keys are declared ahead of the table-valued ones for the same
// marshalling reason as in Config.
type Host struct {
	// Hostname may carry an explicit port as "name:port"; without one the
	// process-wide default port is used.
	Hostname string `toml:"hostname"`

	// FenceAgent names the fence agent used to power-control this host.
	FenceAgent string `toml:"fence_agent,omitempty"`

	// FenceParameters carries agent-specific parameters. Required for the
	// redfish and fence_test agents.
	FenceParameters map[string]string `toml:"fence_parameters,omitempty"`

	// Resources are keyed by a unique identifier, referenced by the
	// "requires" edges of dependent resources.
	Resources map[string]Resource `toml:"resources"`
}

// Resource describes one OCF-managed resource.
type Resource struct {
	// Kind is an OCF resource agent identifier such as "heartbeat/ZFS" or
	// "lustre/Lustre".
	Kind string `toml:"kind"`

	// Requires names the resource that must be started before this one.
	// Resources without a Requires edge are roots of their dependency tree.
	Requires string `toml:"requires,omitempty"`

	// Parameters are passed to the resource agent as OCF_RESKEY_* variables.
	Parameters map[string]string `toml:"parameters"`
}

// NewZpool builds the resource document for a ZFS pool.
func NewZpool(pool string) Resource {
	return Resource{
		Kind:       "heartbeat/ZFS",
		Parameters: map[string]string{"pool": pool},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file %q: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %q: %w", path, err)
	}

	return &cfg, nil
}

// Marshal renders cfg as a TOML document, as emitted by the discover
// subcommand.
func Marshal(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
