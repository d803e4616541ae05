package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/occva/X-Bookmarks/internal/aggregate"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/ingest"
	"github.com/occva/X-Bookmarks/internal/recent"
	"github.com/occva/X-Bookmarks/internal/service"
)

// maxLoadBody caps the size of a load request body.
const maxLoadBody = 1 << 20

// FeedHandler serves the feed JSON API.
type FeedHandler struct {
	svc      *service.FeedService
	pageSize int
	logger   *slog.Logger
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(svc *service.FeedService, pageSize int, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		svc:      svc,
		pageSize: pageSize,
		logger:   logger,
	}
}

// TweetsResponse is a page of feed items.
type TweetsResponse struct {
	Tweets []service.Item `json:"tweets"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// StatsResponse lists per-author counts.
type StatsResponse struct {
	Users []domain.UserStat `json:"users"`
}

// ImagesResponse is the gallery index.
type ImagesResponse struct {
	Images []domain.ImageInfo `json:"images"`
}

// SummaryResponse describes the current working set.
type SummaryResponse struct {
	aggregate.Summary
	LoadID  string              `json:"load_id,omitempty"`
	Sources service.LoadRequest `json:"sources"`
	Warning string              `json:"warning,omitempty"`
}

// RecentResponse lists remembered sources.
type RecentResponse struct {
	Recent []recent.Entry `json:"recent"`
}

// LoadRequest is the body of POST /api/v1/load. URLs may be given as a
// list or as one newline-separated string.
type LoadRequest struct {
	Files []string `json:"files"`
	URLs  URLList  `json:"urls"`
}

// URLList accepts either a JSON string array or a newline-separated string.
type URLList []string

// UnmarshalJSON implements json.Unmarshaler.
func (u *URLList) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		*u = ingest.ParseURLList(text)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("urls must be a string or a list of strings")
	}
	*u = nil
	for _, s := range list {
		*u = append(*u, ingest.ParseURLList(s)...)
	}
	return nil
}

// List handles GET /api/v1/tweets.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", h.pageSize)
	if !ok {
		writeError(w, http.StatusBadRequest, KindRequest, "invalid limit")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, KindRequest, "invalid offset")
		return
	}

	items, total := h.svc.Cards(limit, offset, r.URL.Query().Get("user"))
	writeJSON(w, http.StatusOK, TweetsResponse{
		Tweets: items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/v1/tweets/{id}.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, KindRequest, "missing tweet ID")
		return
	}

	item, err := h.svc.Card(id)
	if err != nil {
		if errors.Is(err, domain.ErrTweetNotFound) {
			writeError(w, http.StatusNotFound, KindNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, KindRequest, "failed to get tweet")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Stats handles GET /api/v1/stats.
func (h *FeedHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.UserStats()
	if stats == nil {
		stats = []domain.UserStat{}
	}
	writeJSON(w, http.StatusOK, StatsResponse{Users: stats})
}

// Images handles GET /api/v1/images.
func (h *FeedHandler) Images(w http.ResponseWriter, r *http.Request) {
	images := h.svc.Images()
	if images == nil {
		images = []domain.ImageInfo{}
	}
	writeJSON(w, http.StatusOK, ImagesResponse{Images: images})
}

// Summary handles GET /api/v1/summary.
func (h *FeedHandler) Summary(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot()
	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary: snap.Summary,
		LoadID:  snap.LoadID,
		Sources: snap.Request,
		Warning: snap.Warning,
	})
}

// Load handles POST /api/v1/load.
func (h *FeedHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoadBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, KindRequest, "invalid request body: "+err.Error())
		return
	}

	lr := service.LoadRequest{Files: req.Files, URLs: req.URLs}
	if lr.Empty() {
		writeError(w, http.StatusBadRequest, KindRequest, domain.ErrNoSources.Error())
		return
	}

	outcome, err := h.svc.Load(r.Context(), lr)
	h.respondLoad(w, outcome, err)
}

// Reload handles POST /api/v1/reload.
func (h *FeedHandler) Reload(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.svc.Reload(r.Context())
	if errors.Is(err, domain.ErrNoSources) {
		writeError(w, http.StatusConflict, KindRequest, "nothing has been loaded yet")
		return
	}
	h.respondLoad(w, outcome, err)
}

func (h *FeedHandler) respondLoad(w http.ResponseWriter, outcome *service.LoadOutcome, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	resp := ErrorResponse{Error: err.Error(), Kind: KindLoad}
	if outcome != nil {
		resp.Errors = outcome.Errors
		if outcome.JSONFormatError {
			resp.Kind = KindJSONFormat
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// Recent handles GET /api/v1/recent.
func (h *FeedHandler) Recent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Recent(r.Context())
	if err != nil {
		h.logger.Error("failed to list recent sources", "error", err)
		writeError(w, http.StatusInternalServerError, KindRequest, "failed to list recent sources")
		return
	}
	if entries == nil {
		entries = []recent.Entry{}
	}
	writeJSON(w, http.StatusOK, RecentResponse{Recent: entries})
}

// DeleteRecent handles DELETE /api/v1/recent. With ?key= it forgets one
// entry, otherwise all of them.
func (h *FeedHandler) DeleteRecent(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	var err error
	if key != "" {
		err = h.svc.RemoveRecent(r.Context(), key)
	} else {
		err = h.svc.ClearRecent(r.Context())
	}

	if err != nil {
		if errors.Is(err, domain.ErrRecentNotFound) {
			writeError(w, http.StatusNotFound, KindNotFound, err.Error())
			return
		}
		h.logger.Error("failed to delete recent sources", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, KindRequest, "failed to delete recent sources")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
