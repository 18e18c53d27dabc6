package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/simbridge/core/journal"
)

var recs = []journal.Record{
	{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), RunID: "r", SimTime: 1.5, Throttle: 0.4, Sent: true},
	{Timestamp: time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC), RunID: "r", SimTime: 2, Brake: 1, LatencyMS: 0.25},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, "2026-03-01T12:00:00Z,r,1.5,0,0.4,0,true,0", lines[1])
	assert.Equal(t, "2026-03-01T12:00:01Z,r,2,0,0,1,false,0.25", lines[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, recs))
	var out []journal.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, recs, out)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", recs))
	assert.NoError(t, Write(&bytes.Buffer{}, FormatCSV, recs))
}
