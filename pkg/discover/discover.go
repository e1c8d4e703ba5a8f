package discover

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/log"
)

// Discover scrapes the given hosts over ssh and assembles a configuration
// document describing the zpools and Lustre targets found running on them.
func Discover(hostnames []string, verbose bool) (*config.Config, error) {
	cfg := &config.Config{}
	logger := log.WithComponent("discover")

	for _, hostname := range hostnames {
		host, err := discoverHost(hostname, verbose, logger)
		if err != nil {
			return nil, err
		}
		cfg.Hosts = append(cfg.Hosts, host)
	}

	return cfg, nil
}

// discoverHost builds the configuration entry for one host from the zpools
// and Lustre mounts visible on it.
func discoverHost(hostname string, verbose bool, logger zerolog.Logger) (config.Host, error) {
	zpoolOut, err := runRemote(hostname, verbose, logger, "zpool", "list", "-H", "-o", "name")
	if err != nil {
		return config.Host{}, fmt.Errorf("could not list zpools on %q: %w", hostname, err)
	}
	resources := ParseZpoolOutput(zpoolOut)

	lustreOut, err := runRemote(hostname, verbose, logger, "mount", "-t", "lustre")
	if err != nil {
		return config.Host{}, fmt.Errorf("could not list lustre mounts on %q: %w", hostname, err)
	}
	lustre, err := ParseLustreOutput(lustreOut)
	if err != nil {
		return config.Host{}, fmt.Errorf("host %q: %w", hostname, err)
	}
	for id, res := range lustre {
		resources[id] = res
	}

	return config.Host{
		Hostname:  hostname,
		Resources: resources,
	}, nil
}

func runRemote(hostname string, verbose bool, logger zerolog.Logger, args ...string) (string, error) {
	if verbose {
		logger.Info().Str("host", hostname).Strs("command", args).Msg("Running remote command")
	}

	out, err := exec.Command("ssh", append([]string{hostname}, args...)...).Output()
	if err != nil {
		return "", err
	}
	if verbose {
		logger.Info().Str("host", hostname).Str("stdout", string(out)).Msg("Remote command output")
	}
	return string(out), nil
}

// ParseZpoolOutput converts `zpool list -H -o name` output into zpool
// resource documents keyed by pool name.
func ParseZpoolOutput(out string) map[string]config.Resource {
	resources := make(map[string]config.Resource)
	for _, line := range strings.Split(out, "\n") {
		pool := strings.TrimSpace(line)
		if pool == "" {
			continue
		}
		resources[pool] = config.NewZpool(pool)
	}
	return resources
}

// ParseLustreOutput converts `mount -t lustre` output into Lustre target
// resource documents keyed by target device. Each target requires the zpool
// its device lives in.
func ParseLustreOutput(out string) (map[string]config.Resource, error) {
	resources := make(map[string]config.Resource)
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := ParseLustreMount(line)
		if err != nil {
			return nil, err
		}
		resources[res.Parameters["target"]] = res
	}
	return resources, nil
}

// ParseLustreMount parses one line of `mount -t lustre` output, e.g.
//
//	oss01e0/ost2 on /mnt/ost2 type lustre (ro,svname=test-OST0002,...)
//
// into a Lustre resource document. The device's zpool becomes the target's
// requires edge; the svname mount option decides whether the target is an
// mgs, mdt, or ost.
func ParseLustreMount(line string) (config.Resource, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 6 {
		return config.Resource{}, fmt.Errorf("could not parse lustre mount line %q", line)
	}

	device := tokens[0]
	zpool, _, found := strings.Cut(device, "/")
	if !found {
		return config.Resource{}, fmt.Errorf("lustre device %q is not inside a zpool", device)
	}
	mountpoint := tokens[2]

	opts := strings.Trim(tokens[5], "()")
	kind := ""
	for _, opt := range strings.Split(opts, ",") {
		svname, ok := strings.CutPrefix(opt, "svname=")
		if !ok {
			continue
		}
		switch {
		case strings.Contains(svname, "MDT"):
			kind = "mdt"
		case strings.Contains(svname, "MGS"):
			kind = "mgs"
		case strings.Contains(svname, "OST"):
			kind = "ost"
		}
	}
	if kind == "" {
		return config.Resource{}, fmt.Errorf("could not determine target kind from mount line %q", line)
	}

	return config.Resource{
		Kind: "lustre/Lustre",
		Parameters: map[string]string{
			"mountpoint": mountpoint,
			"target":     device,
			"kind":       kind,
		},
		Requires: zpool,
	}, nil
}
