package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/fence"
	"github.com/halo-hpc/halo/pkg/types"
)

var powerCmd = &cobra.Command{
	Use:   "power <on|off|status> [<host>...]",
	Short: "Control or query host power through fence agents",
	Long: `Perform an out-of-band power action on the named hosts. With no
hosts, reports the power status of every host in the configuration. Fence
agents and their parameters normally come from the configuration file; an
explicit --fence-agent overrides it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, ok := types.ParseFenceCommand(args[0])
		if !ok {
			return fmt.Errorf("unknown power action %q", args[0])
		}
		hostnames := args[1:]

		if len(hostnames) == 0 {
			return powerStatusAll(cmd, action)
		}

		if agentName, _ := cmd.Flags().GetString("fence-agent"); agentName != "" {
			return powerWithAgent(cmd, agentName, action, hostnames)
		}

		return powerFromConfig(cmd, action, hostnames)
	},
}

func init() {
	powerCmd.Flags().StringP("fence-agent", "f", "", `Fence agent to use, "powerman" or "redfish"`)
	powerCmd.Flags().StringP("username", "l", "", "Username for the redfish fence agent")
	powerCmd.Flags().StringP("password", "p", "", "Password for the redfish fence agent")
}

// powerStatusAll reports the power state of every configured host. Only the
// status action makes sense without explicit hosts.
func powerStatusAll(cmd *cobra.Command, action types.FenceCommand) error {
	if action != types.FenceStatus {
		return fmt.Errorf("must specify host names to perform action %q", action)
	}

	clus, err := loadCluster(cmd)
	if err != nil {
		return err
	}

	for _, host := range clus.Hosts() {
		on, err := host.PoweredOn()
		switch {
		case err != nil:
			fmt.Printf("Could not determine power status for %s: %v\n", host, err)
		case on:
			fmt.Printf("%s is on\n", host)
		default:
			fmt.Printf("%s is off\n", host)
		}
	}
	return nil
}

// powerWithAgent fences hosts with an agent given on the command line,
// overriding any configuration.
func powerWithAgent(cmd *cobra.Command, agentName string, action types.FenceCommand, hostnames []string) error {
	params := map[string]string{}
	if user, _ := cmd.Flags().GetString("username"); user != "" {
		params["username"] = user
	}
	if pass, _ := cmd.Flags().GetString("password"); pass != "" {
		params["password"] = pass
	}

	agent, err := fence.FromConfig(agentName, params)
	if err != nil {
		return err
	}

	defaults, err := config.DefaultsFromEnv()
	if err != nil {
		return err
	}

	var failed bool
	for _, name := range hostnames {
		host := cluster.NewHost(name, 0, defaults.Port, agent)
		reportFence(host, host.DoFence(action), &failed)
	}
	if failed {
		return fmt.Errorf("fencing failed for some hosts")
	}
	return nil
}

// powerFromConfig fences hosts using the fence bindings in the
// configuration file.
func powerFromConfig(cmd *cobra.Command, action types.FenceCommand, hostnames []string) error {
	clus, err := loadCluster(cmd)
	if err != nil {
		return err
	}

	var failed bool
	for _, name := range hostnames {
		host, ok := clus.GetHost(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Host %q not found in configuration\n", name)
			failed = true
			continue
		}
		reportFence(host, host.DoFence(action), &failed)
	}
	if failed {
		return fmt.Errorf("fencing failed for some hosts")
	}
	return nil
}

func reportFence(host *cluster.Host, err error, failed *bool) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s Fence result: Failure: %v\n", host.Name(), err)
		*failed = true
		return
	}
	fmt.Fprintf(os.Stderr, "%s Fence: Success\n", host.Name())
}
