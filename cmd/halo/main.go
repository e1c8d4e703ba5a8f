package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/config"
	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "halo",
	Short: "halo - high availability manager for ZFS-backed Lustre clusters",
	Long: `halo monitors and manages storage resources across a cluster: ZFS
pools and the Lustre targets that live on them. Run with no subcommand, it
starts the management daemon, which continuously monitors every resource
and, in manage mode, keeps each one running on its home host or fails it
over to its partner.

Subcommands talk to a running daemon or act on hosts directly.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Cluster configuration file (default $HALO_CONFIG)")
	rootCmd.PersistentFlags().String("socket", "", "Manager control socket path (default $HALO_SOCKET)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("mtls", false, "Enable mutual TLS towards remote agents")
	rootCmd.PersistentFlags().Bool("manage-resources", false,
		"Run in manage mode (actively start and fail over resources) instead of observe mode")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(validateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// options collects the persistent flags into the shared Options value.
func options(cmd *cobra.Command) cluster.Options {
	configPath, _ := cmd.Flags().GetString("config")
	socket, _ := cmd.Flags().GetString("socket")
	verbose, _ := cmd.Flags().GetBool("verbose")
	mtls, _ := cmd.Flags().GetBool("mtls")
	manage, _ := cmd.Flags().GetBool("manage-resources")

	return cluster.Options{
		ConfigPath:      configPath,
		Socket:          socket,
		Verbose:         verbose,
		MTLS:            mtls,
		ManageResources: manage,
	}
}

// newContext resolves environment defaults and builds the shared context.
func newContext(cmd *cobra.Command) (*cluster.Context, error) {
	defaults, err := config.DefaultsFromEnv()
	if err != nil {
		return nil, err
	}
	return cluster.NewContext(options(cmd), defaults)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger := log.WithComponent("metrics")
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}
