package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	// None of these may panic.
	m.RecordSessionStart()
	m.RecordSessionEnd("ok", time.Second)
	m.RecordAudio("input", 320)
	m.RecordTurn()
	m.RecordFrameDropped()
	m.RecordInterrupt()
	m.SetPlaybackBacklog(3)
	m.RecordTranscript("output")
	m.RecordJobSubmitted()
	m.RecordJobDone("done", time.Minute)
	m.RecordPoll()
	m.RecordError("transport_error")
}

func TestRecordersUpdateCounters(t *testing.T) {
	m := New("test")

	m.RecordSessionStart()
	if got := testutil.ToFloat64(m.LiveSessionsActive); got != 1 {
		t.Fatalf("active sessions = %v, want 1", got)
	}
	m.RecordSessionEnd("ok", 2*time.Second)
	if got := testutil.ToFloat64(m.LiveSessionsActive); got != 0 {
		t.Fatalf("active sessions after end = %v, want 0", got)
	}

	m.RecordJobSubmitted()
	m.RecordPoll()
	m.RecordPoll()
	m.RecordJobDone("empty", 20*time.Second)
	if got := testutil.ToFloat64(m.JobPollsTotal); got != 2 {
		t.Fatalf("polls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.JobsActive); got != 0 {
		t.Fatalf("active jobs = %v, want 0", got)
	}

	m.RecordAudio("input", 100)
	m.RecordAudio("input", 60)
	if got := testutil.ToFloat64(m.LiveAudioBytesTotal.WithLabelValues("input")); got != 160 {
		t.Fatalf("input bytes = %v, want 160", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New("test")
	m.RecordTurn()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("metrics request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
