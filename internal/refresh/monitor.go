// Package refresh periodically reloads the working set so remote exports
// that change upstream show up in a running viewer.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/occva/X-Bookmarks/internal/service"
)

// Reloader repeats the last successful load.
type Reloader interface {
	Reload(ctx context.Context) (*service.LoadOutcome, error)
}

// MonitorState represents the current state of the refresh monitor.
type MonitorState string

const (
	MonitorStateIdle    MonitorState = "idle"
	MonitorStateRunning MonitorState = "running"
	MonitorStatePaused  MonitorState = "paused"
)

// Status is a point-in-time view of the monitor.
type Status struct {
	State     MonitorState `json:"state"`
	Interval  string       `json:"interval"`
	LastPoll  *time.Time   `json:"last_poll,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	LastLoad  string       `json:"last_load_id,omitempty"`
	Polls     int          `json:"polls"`
}

// Monitor reloads on a fixed interval.
type Monitor struct {
	interval time.Duration
	reloader Reloader
	logger   *slog.Logger

	mu        sync.RWMutex
	state     MonitorState
	checkNow  chan struct{}
	lastPoll  time.Time
	lastError string
	lastLoad  string
	polls     int
}

// NewMonitor creates a monitor that reloads every interval.
func NewMonitor(interval time.Duration, reloader Reloader, logger *slog.Logger) *Monitor {
	return &Monitor{
		interval: interval,
		reloader: reloader,
		logger:   logger,
		state:    MonitorStateIdle,
		checkNow: make(chan struct{}, 1),
	}
}

// State returns the current monitor state.
func (m *Monitor) State() MonitorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns the monitor's state and last poll outcome.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		State:     m.state,
		Interval:  m.interval.String(),
		LastError: m.lastError,
		LastLoad:  m.lastLoad,
		Polls:     m.polls,
	}
	if !m.lastPoll.IsZero() {
		t := m.lastPoll
		s.LastPoll = &t
	}
	return s
}

// Pause stops scheduled reloads until Resume.
func (m *Monitor) Pause() {
	m.mu.Lock()
	if m.state == MonitorStateRunning {
		m.state = MonitorStatePaused
		m.logger.Info("refresh monitor paused")
	}
	m.mu.Unlock()
}

// Resume restarts scheduled reloads.
func (m *Monitor) Resume() {
	m.mu.Lock()
	if m.state == MonitorStatePaused {
		m.state = MonitorStateRunning
		m.logger.Info("refresh monitor resumed")
	}
	m.mu.Unlock()
}

// CheckNow requests an immediate reload. It reports false when the monitor
// is not running.
func (m *Monitor) CheckNow() bool {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()

	if state == MonitorStateIdle {
		return false
	}

	select {
	case m.checkNow <- struct{}{}:
		m.logger.Info("refresh requested")
	default:
		// Already pending
	}
	return true
}

// Start runs the monitor until ctx is done. It blocks.
func (m *Monitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}

	m.mu.Lock()
	m.state = MonitorStateRunning
	m.mu.Unlock()

	m.logger.Info("starting refresh monitor", "interval", m.interval.String())

	t := time.NewTicker(m.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.state = MonitorStateIdle
			m.mu.Unlock()
			m.logger.Info("refresh monitor stopped")
			return
		case <-m.checkNow:
			m.poll(ctx)
		case <-t.C:
			if m.State() == MonitorStatePaused {
				continue
			}
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	start := time.Now()
	outcome, err := m.reloader.Reload(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPoll = start
	m.polls++
	if err != nil {
		m.lastError = err.Error()
		m.logger.Warn("scheduled reload failed", "error", err)
		return
	}

	m.lastError = ""
	m.lastLoad = outcome.LoadID
	m.logger.Info("scheduled reload complete",
		"load_id", outcome.LoadID,
		"records", outcome.Records,
		"duration", time.Since(start),
	)
}
