package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/simbridge/core/journal"
	"github.com/kilianp07/simbridge/pkg/export"
)

var journalOpts struct {
	format string
	since  time.Duration
	runID  string
	failed bool
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the command journal",
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write journaled commands as csv or json",
	RunE:  runJournalExport,
}

func init() {
	f := journalExportCmd.Flags()
	f.StringVar(&journalOpts.format, "format", export.FormatCSV, "output format (csv|json)")
	f.DurationVar(&journalOpts.since, "since", 0, "only records newer than this duration")
	f.StringVar(&journalOpts.runID, "run", "", "only records of this run id")
	f.BoolVar(&journalOpts.failed, "failed", false, "only commands that were not delivered")
	journalCmd.AddCommand(journalExportCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := journal.Query{RunID: journalOpts.runID, FailedOnly: journalOpts.failed}
	if journalOpts.since > 0 {
		q.Start = time.Now().Add(-journalOpts.since)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), journalOpts.format, recs)
}
