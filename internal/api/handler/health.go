package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/occva/X-Bookmarks/internal/service"
)

var startTime = time.Now()

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	svc *service.FeedService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *service.FeedService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status     string     `json:"status"`
	Timestamp  string     `json:"timestamp"`
	Uptime     string     `json:"uptime"`
	Goroutines int        `json:"goroutines"`
	MemAllocMB int64      `json:"mem_alloc_mb"`
	Feed       *FeedState `json:"feed,omitempty"`
}

// FeedState describes the loaded working set.
type FeedState struct {
	LoadID   string `json:"load_id,omitempty"`
	LoadedAt string `json:"loaded_at,omitempty"`
	Items    int    `json:"items"`
	Users    int    `json:"users"`
}

// Live handles GET /health.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     formatUptime(time.Since(startTime)),
		Goroutines: runtime.NumGoroutine(),
		MemAllocMB: int64(m.Alloc / 1024 / 1024),
	}

	if h.svc != nil {
		snap := h.svc.Snapshot()
		state := &FeedState{
			LoadID: snap.LoadID,
			Items:  len(snap.Items),
			Users:  len(snap.Stats),
		}
		if !snap.LoadedAt.IsZero() {
			state.LoadedAt = snap.LoadedAt.UTC().Format(time.RFC3339)
		}
		resp.Feed = state
	}

	writeJSON(w, http.StatusOK, resp)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
