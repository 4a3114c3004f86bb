package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WilhelmWidlund/CS487-Project/server"
	sim "github.com/WilhelmWidlund/CS487-Project/sim"
)

var listenAddr string // HTTP listen address

// runCmd ticks the plant in real time and serves it over HTTP until
// interrupted.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the plant in real time behind the HTTP/WebSocket server",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := loadPlantConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s, err := sim.NewSimulator(cfg, time.Now())
		if err != nil {
			logrus.Fatalf("Failed to build plant: %v", err)
		}
		srv := server.New(s)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.Run(ctx) })
		g.Go(func() error { return srv.ListenAndServe(ctx, listenAddr) })
		if err := g.Wait(); err != nil {
			logrus.Fatalf("Plant stopped: %v", err)
		}

		m := s.Metrics()
		m.Print(cmd.OutOrStdout(), s.Network.Names())
	},
}
