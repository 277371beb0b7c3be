package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesBrainMetrics(t *testing.T) {
	RecordBrainSpread(10*time.Millisecond, 3)
	RecordBrainPrune(time.Millisecond, 2)
	RecordBrainHebbian(6)
	SetBrainSize(4, 5)
	RecordMaintenanceRun("prune", time.Millisecond, true)

	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	for _, name := range []string{
		"brain_spread_duration_seconds",
		"brain_pruned_edges_total",
		"brain_hebbian_pairs_total",
		"brain_concepts 4",
		"brain_edges 5",
		`maintenance_runs_total{job="prune",status="success"}`,
	} {
		assert.Contains(t, text, name)
	}
}

func TestAuditLoggerRecordMaintenance(t *testing.T) {
	var buf bytes.Buffer
	a := NewAuditLogger(&buf)

	a.RecordMaintenance(context.Background(), "prune", "scheduler", nil, map[string]interface{}{"removed": 3})
	a.RecordMaintenance(context.Background(), "autolink", "cli", errors.New("boom"), nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "prune", first["action"])
	assert.Equal(t, "success", first["status"])
	assert.Equal(t, "failure", second["status"])
	assert.Equal(t, "boom", second["metadata"].(map[string]interface{})["error"])
}

func TestAuditLoggerNilIsNoop(t *testing.T) {
	var a *AuditLogger
	assert.NotPanics(t, func() {
		a.RecordMaintenance(context.Background(), "prune", "cli", nil, nil)
	})
	assert.NoError(t, a.Close())
}
