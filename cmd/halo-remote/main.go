package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/remote"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "halo-remote",
	Short: "halo remote agent - executes resource agent operations on this host",
	Long: `halo-remote runs on every managed host. It listens for operation
requests from the halo manager and executes the corresponding OCF resource
agent scripts locally, reporting their exit status back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd)
	},
}

func init() {
	rootCmd.Flags().String("network", "",
		"Only listen on an IP address in this CIDR network (default $HALO_NET)")
	rootCmd.Flags().Int("port", 0, "Port to listen on (default $HALO_PORT)")
	rootCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.Flags().String("test-id", "",
		"Identifier for this agent in the test environment")
	rootCmd.Flags().String("ocf-root", "",
		"Directory holding the OCF resource agent scripts (default $OCF_ROOT)")
	rootCmd.Flags().Bool("mtls", false,
		"Enable mutual TLS; must also be enabled on the manager side")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cobra.OnInitialize(func() {
		level, _ := rootCmd.Flags().GetString("log-level")
		log.Init(log.Config{Level: log.Level(level)})
	})
}

func runAgent(cmd *cobra.Command) error {
	defaults, err := config.DefaultsFromEnv()
	if err != nil {
		return err
	}

	network, _ := cmd.Flags().GetString("network")
	port, _ := cmd.Flags().GetInt("port")
	verbose, _ := cmd.Flags().GetBool("verbose")
	testID, _ := cmd.Flags().GetString("test-id")
	ocfRoot, _ := cmd.Flags().GetString("ocf-root")
	mtls, _ := cmd.Flags().GetBool("mtls")

	server, err := remote.NewServer(remote.Config{
		Network:  network,
		Port:     port,
		Verbose:  verbose,
		TestID:   testID,
		OCFRoot:  ocfRoot,
		MTLS:     mtls,
		Defaults: defaults,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
