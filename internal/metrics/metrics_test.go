package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.ObserveFrame(20 * time.Millisecond)
	m.IncFace(ResultAuthorized)
	m.IncFace(ResultIntruder)
	m.IncFace(ResultIntruder)
	m.IncIntruderRecorded()
	m.IncFrameError(ErrorEncode)
	m.SetSessionState(2)

	mux := http.NewServeMux()
	m.RegisterMetricsHandlers(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		"camguard_frames_processed_total 1",
		`camguard_faces_total{result="intruder"} 2`,
		`camguard_faces_total{result="authorized"} 1`,
		"camguard_intruders_recorded_total 1",
		`camguard_frame_errors_total{kind="encode"} 1`,
		"camguard_session_state 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFrame(time.Second)
	m.IncFace(ResultAuthorized)
	m.IncIntruderRecorded()
	m.IncFrameError(ErrorDetection)
	m.SetSessionState(1)
	m.RegisterMetricsHandlers(http.NewServeMux())
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}
