package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/infra/logger"
	"github.com/kilianp07/simbridge/infra/transmit"
)

var sendOpts struct {
	address  string
	steer    float64
	throttle float64
	brake    float64
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Transmit a single control command and print the transmitter stats",
	RunE:  runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.address, "address", "", "egress address (overrides transmit.address)")
	f.Float64Var(&sendOpts.steer, "steer", 0, "steering in [-1, 1]")
	f.Float64Var(&sendOpts.throttle, "throttle", 0, "throttle in [0, 1]")
	f.Float64Var(&sendOpts.brake, "brake", 1, "brake in [0, 1]")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tc := cfg.Transmit
	if sendOpts.address != "" {
		tc.Address = sendOpts.address
	}
	tx, err := transmit.New(tc, logger.New("send"))
	if err != nil {
		return err
	}
	defer func() { _ = tx.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	tx.Send(ctx, model.ControlCommand{
		Steer:     sendOpts.steer,
		Throttle:  sendOpts.throttle,
		Brake:     sendOpts.brake,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tx.Stats())
}
