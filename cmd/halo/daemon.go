package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/halo-hpc/halo/pkg/api"
	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/engine"
)

// runDaemon starts the two long-running services of the manager:
//
//   - the lifecycle engine, which continuously monitors (and in manage mode
//     drives) the state of every resource group, and
//   - the control channel server, which answers status queries from
//     interactive clients on the local socket.
//
// The two share nothing but the cluster model, which is guarded by its own
// fine-grained locks.
func runDaemon() error {
	mgrContext, err := newContext(rootCmd)
	if err != nil {
		return err
	}

	clus, err := cluster.New(mgrContext)
	if err != nil {
		return err
	}

	if addr, _ := rootCmd.Flags().GetString("metrics-addr"); addr != "" {
		serveMetrics(addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.New(clus).Run(ctx)

	// A control socket bind failure is the one unrecoverable startup error
	// of a fully-assembled manager; it surfaces here and exits the process.
	return api.NewServer(clus).Run(ctx)
}
