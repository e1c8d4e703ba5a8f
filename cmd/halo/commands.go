package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halo-hpc/halo/pkg/client"
	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/discover"
	"github.com/halo-hpc/halo/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the running manager for cluster status",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgrContext, err := newContext(cmd)
		if err != nil {
			return err
		}

		c, err := client.New(mgrContext.SocketPath())
		if err != nil {
			return err
		}
		defer c.Close()

		state, err := c.Monitor(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not get status: %w", err)
		}

		excludeNormal, _ := cmd.Flags().GetBool("exclude-normal")
		client.PrintStatus(os.Stdout, state, excludeNormal)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start every configured resource on its home host",
	Long: `Start every resource in the cluster in dependency order: all zpools
first, then the Lustre MGS target, then the remaining Lustre targets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		clus, err := loadCluster(cmd)
		if err != nil {
			return err
		}
		return startAll(cmd.Context(), clus)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every configured resource",
	Long: `Stop every resource in the cluster in reverse dependency order:
Lustre targets first (MGS last among them), then the zpools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		clus, err := loadCluster(cmd)
		if err != nil {
			return err
		}
		return stopAll(cmd.Context(), clus)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover <host>...",
	Short: "Scrape hosts for running resources and emit a configuration",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := discover.Discover(args, verbose)
		if err != nil {
			return err
		}

		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and assemble a configuration file, printing a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		clus, err := loadCluster(cmd)
		if err != nil {
			return err
		}
		clus.PrintSummary(os.Stdout)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolP("exclude-normal", "x", false, "Only show resources that are not running normally")
}

// loadCluster assembles the cluster model from the configured file.
func loadCluster(cmd *cobra.Command) (*cluster.Cluster, error) {
	mgrContext, err := newContext(cmd)
	if err != nil {
		return nil, err
	}
	return cluster.New(mgrContext)
}

// startAll starts the whole cluster in dependency order: zpools, then the
// MGS, then every other Lustre target.
func startAll(ctx context.Context, clus *cluster.Cluster) error {
	var failed bool

	for res := range clus.ZpoolResources() {
		reportOp(res, "start", runStart(ctx, res), &failed)
	}

	if mgs := clus.MGS(); mgs != nil {
		reportOp(mgs, "start", runStart(ctx, mgs), &failed)
	} else {
		fmt.Fprintln(os.Stderr, "Could not find mgs target.")
	}

	for res := range clus.LustreResourcesNoMGS() {
		reportOp(res, "start", runStart(ctx, res), &failed)
	}

	if failed {
		return fmt.Errorf("some resources failed to start")
	}
	return nil
}

// stopAll stops the whole cluster in reverse dependency order.
func stopAll(ctx context.Context, clus *cluster.Cluster) error {
	var failed bool

	for res := range clus.LustreResourcesNoMGS() {
		reportOp(res, "stop", runStop(ctx, res), &failed)
	}
	if mgs := clus.MGS(); mgs != nil {
		reportOp(mgs, "stop", runStop(ctx, mgs), &failed)
	}
	for res := range clus.ZpoolResources() {
		reportOp(res, "stop", runStop(ctx, res), &failed)
	}

	if failed {
		return fmt.Errorf("some resources failed to stop")
	}
	return nil
}

func runStart(ctx context.Context, res *cluster.Resource) error {
	status, err := res.Start(ctx, types.Home)
	if err != nil {
		return err
	}
	if status != types.OcfSuccess {
		return fmt.Errorf("%s", status)
	}
	return nil
}

func runStop(ctx context.Context, res *cluster.Resource) error {
	status, err := res.Stop(ctx)
	if err != nil {
		return err
	}
	if status != types.OcfSuccess {
		return fmt.Errorf("%s", status)
	}
	return nil
}

func reportOp(res *cluster.Resource, op string, err error, failed *bool) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", op, res.ParamsString(), err)
		*failed = true
		return
	}
	fmt.Printf("%s %s: ok\n", op, res.ParamsString())
}
