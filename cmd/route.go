package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route related commands",
}

var routeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Print the configured route",
	RunE:  runRouteLs,
}

func init() {
	routeCmd.AddCommand(routeLsCmd)
	rootCmd.AddCommand(routeCmd)
}

func runRouteLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	route, err := cfg.Planner.BuildRoute()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tX\tY\tLEG")
	for i, p := range route.Points() {
		leg := 0.0
		if i > 0 {
			leg = route.At(i - 1).DistanceTo(p)
		}
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\n", i, p.X, p.Y, leg)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d waypoints, %.2f m\n", route.Len(), route.Length())
	return err
}
