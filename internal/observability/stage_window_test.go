package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestStageWindowSnapshot(t *testing.T) {
	w := newStageWindow(8)
	w.Observe(StageDialogue, 500)
	w.Observe(StageDialogue, 700)
	w.Observe(StageDialogue, 900)
	w.ObserveIndicator("ended")
	w.ObserveIndicator("ended")

	snap := w.Snapshot()
	require.Equal(t, 8, snap.WindowSize)
	require.Len(t, snap.Stages, 1)

	s := snap.Stages[0]
	require.Equal(t, StageDialogue, s.Stage)
	require.Equal(t, 3, s.Samples)
	require.Equal(t, 900.0, s.LastMS)
	require.Equal(t, 700.0, s.P50MS)
	require.Equal(t, 900.0, s.MaxMS)
	require.Greater(t, s.P95MS, 700.0)
	require.LessOrEqual(t, s.P95MS, 900.0)
	require.Equal(t, 2500.0, s.TargetP95MS)

	require.Equal(t, []Indicator{{Name: "ended", Count: 2}}, snap.Indicators)
}

func TestStageWindowEvictsOldest(t *testing.T) {
	w := newStageWindow(2)
	w.Observe(StageCapture, 1)
	w.Observe(StageCapture, 2)
	w.Observe(StageCapture, 3)

	s := w.Snapshot().Stages[0]
	require.Equal(t, 2, s.Samples)
	require.Equal(t, 2.5, s.AvgMS)
	require.Equal(t, 3.0, s.LastMS)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStage(StageCapture, time.Second)
	m.SessionStarted()
	m.SessionEnded("user_quit")
	m.TurnCompleted()
	m.ProviderError("deepgram", "timeout")
	m.RecordWrite("ok")
	m.ObservePromptTokens(10)
	require.Empty(t, m.SnapshotStages().Stages)
}

func TestMetricsObserveStage(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")
	m.ObserveStage(StageSummarize, 1500*time.Millisecond)

	snap := m.SnapshotStages()
	require.Len(t, snap.Stages, 1)
	require.Equal(t, 1500.0, snap.Stages[0].LastMS)
}
