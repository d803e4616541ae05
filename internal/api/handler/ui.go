package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/occva/X-Bookmarks/internal/service"
	"github.com/occva/X-Bookmarks/pkg/ui"
)

// UIHandler serves the HTML feed page.
type UIHandler struct {
	svc      *service.FeedService
	pageSize int
	logger   *slog.Logger
}

// NewUIHandler creates a new UI handler.
func NewUIHandler(svc *service.FeedService, pageSize int, logger *slog.Logger) *UIHandler {
	return &UIHandler{
		svc:      svc,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Index serves the feed page (?user=&limit=&offset=).
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", h.pageSize)
	if !ok {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	page := ui.NewPage(h.svc, r.URL.Query().Get("user"), limit, offset)
	page.Base = r.URL.Path

	var buf bytes.Buffer
	if err := ui.Render(&buf, page); err != nil {
		h.logger.Error("failed to render feed page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
