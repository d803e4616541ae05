package handler

import (
	"net/http"

	"github.com/occva/X-Bookmarks/internal/refresh"
)

// RefreshMonitor is the part of the refresh monitor the API drives.
type RefreshMonitor interface {
	Status() refresh.Status
	CheckNow() bool
	Pause()
	Resume()
}

// RefreshHandler exposes the periodic refresh monitor.
type RefreshHandler struct {
	monitor RefreshMonitor
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(monitor RefreshMonitor) *RefreshHandler {
	return &RefreshHandler{monitor: monitor}
}

// Status handles GET /api/v1/refresh.
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

// Trigger handles POST /api/v1/refresh. The reload runs asynchronously.
func (h *RefreshHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.CheckNow() {
		writeError(w, http.StatusConflict, KindRequest, "refresh monitor is not running")
		return
	}
	writeJSON(w, http.StatusAccepted, h.monitor.Status())
}

// Pause handles POST /api/v1/refresh/pause.
func (h *RefreshHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.monitor.Pause()
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

// Resume handles POST /api/v1/refresh/resume.
func (h *RefreshHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.monitor.Resume()
	writeJSON(w, http.StatusOK, h.monitor.Status())
}
