// Package export writes journal records in formats suitable for offline
// analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/simbridge/core/journal"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Header is the CSV column order.
var Header = []string{"timestamp", "run_id", "sim_time", "steer", "throttle", "brake", "sent", "latency_ms"}

// Write dispatches to the writer for format.
func Write(w io.Writer, format string, recs []journal.Record) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, recs)
	case FormatCSV:
		return WriteCSV(w, recs)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteJSON writes the records as a JSON array. A nil slice is written as [].
func WriteJSON(w io.Writer, recs []journal.Record) error {
	if recs == nil {
		recs = []journal.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per record after the Header row.
func WriteCSV(w io.Writer, recs []journal.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Timestamp.Format(time.RFC3339Nano),
			r.RunID,
			formatFloat(r.SimTime),
			formatFloat(r.Steer),
			formatFloat(r.Throttle),
			formatFloat(r.Brake),
			strconv.FormatBool(r.Sent),
			formatFloat(r.LatencyMS),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
