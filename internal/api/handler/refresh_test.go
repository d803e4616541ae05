package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/occva/X-Bookmarks/internal/refresh"
)

type fakeMonitor struct {
	state   refresh.MonitorState
	checks  int
	pauses  int
	resumes int
}

func (f *fakeMonitor) Status() refresh.Status {
	return refresh.Status{State: f.state, Interval: "1m0s", Polls: f.checks}
}

func (f *fakeMonitor) CheckNow() bool {
	if f.state == refresh.MonitorStateIdle {
		return false
	}
	f.checks++
	return true
}

func (f *fakeMonitor) Pause() {
	f.pauses++
	f.state = refresh.MonitorStatePaused
}

func (f *fakeMonitor) Resume() {
	f.resumes++
	f.state = refresh.MonitorStateRunning
}

func TestRefreshHandler_Status(t *testing.T) {
	h := NewRefreshHandler(&fakeMonitor{state: refresh.MonitorStateRunning})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/refresh", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got refresh.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != refresh.MonitorStateRunning {
		t.Errorf("state = %q, want running", got.State)
	}
}

func TestRefreshHandler_Trigger(t *testing.T) {
	tests := []struct {
		name   string
		state  refresh.MonitorState
		status int
		checks int
	}{
		{"running", refresh.MonitorStateRunning, http.StatusAccepted, 1},
		{"paused", refresh.MonitorStatePaused, http.StatusAccepted, 1},
		{"idle", refresh.MonitorStateIdle, http.StatusConflict, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMonitor{state: tt.state}
			h := NewRefreshHandler(m)

			rec := httptest.NewRecorder()
			h.Trigger(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if m.checks != tt.checks {
				t.Errorf("checks = %d, want %d", m.checks, tt.checks)
			}
		})
	}
}

func TestRefreshHandler_PauseResume(t *testing.T) {
	m := &fakeMonitor{state: refresh.MonitorStateRunning}
	h := NewRefreshHandler(m)

	rec := httptest.NewRecorder()
	h.Pause(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh/pause", nil))
	if rec.Code != http.StatusOK || m.state != refresh.MonitorStatePaused {
		t.Errorf("pause: status = %d, state = %q", rec.Code, m.state)
	}

	rec = httptest.NewRecorder()
	h.Resume(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh/resume", nil))
	if rec.Code != http.StatusOK || m.state != refresh.MonitorStateRunning {
		t.Errorf("resume: status = %d, state = %q", rec.Code, m.state)
	}
}
