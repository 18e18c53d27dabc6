package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/simbridge/infra/logger"
	"github.com/kilianp07/simbridge/simulator"
)

var simOpts struct {
	timeScale float64
	lidar     bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a kinematic vehicle counterpart against the configured bridge",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.Float64Var(&simOpts.timeScale, "time-scale", 1, "simulated seconds per wall clock second")
	f.BoolVar(&simOpts.lidar, "lidar", true, "stream synthetic LiDAR frames")
	rootCmd.AddCommand(simulateCmd)
}

// loopback rewrites a wildcard bind address into one that can be dialled.
func loopback(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := simulator.Config{
		CommandAddress: cfg.Transmit.Address,
		SensorAddress:  loopback(cfg.Listener.DatagramAddress),
		CommandCodec:   cfg.Transmit.Codec,
		SensorCodec:    cfg.Listener.DatagramCodec,
		TimeScale:      simOpts.timeScale,
	}
	if simOpts.lidar {
		sc.LiDARAddress = loopback(cfg.Listener.StreamAddress)
	}
	if wps, err := cfg.Planner.Waypoints(); err == nil && len(wps) > 0 {
		sc.Start = wps[0]
	}
	log := logger.New("simulator")
	cp, err := simulator.NewCounterpart(sc, log)
	if err != nil {
		return err
	}
	defer func() { _ = cp.Close() }()
	log.Infof("simulating on %s, sensors to %s", cp.CommandAddr(), sc.SensorAddress)
	return cp.Run(ctx)
}
