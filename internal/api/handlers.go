package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kevinmichaelchen/libfinder/internal/models"
	"github.com/kevinmichaelchen/libfinder/internal/store"
	"go.uber.org/zap"
)

const (
	defaultSearchHistory = 20
	maxSearchHistory     = 100
)

// Searcher runs the search pipeline.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) ([]models.AnalyzedRepo, error)
}

type Handler struct {
	search Searcher
	store  store.Store
	log    *zap.Logger
}

func NewHandler(search Searcher, st store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{search: search, store: st, log: logger}
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/searches", h.RecentSearches)

		r.Route("/bookmarks", func(r chi.Router) {
			r.Post("/", h.CreateBookmark)
			r.Get("/", h.ListBookmarks)
			r.Delete("/{id}", h.DeleteBookmark)
		})
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.SearchRequest{
		Language:    q.Get("language"),
		Description: q.Get("description"),
	}
	if req.Language == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters", nil)
		return
	}
	if ex := q.Get("example"); ex != "" {
		req.Example = &ex
	}
	if raw := q.Get("userId"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid user ID", nil)
			return
		}
		req.UserID = &uid
	}

	results, err := h.search.Search(r.Context(), req)
	if err != nil {
		h.log.Error("search failed",
			zap.String("language", req.Language),
			zap.String("description", req.Description),
			zap.Error(err))
		writeSearchError(w, err)
		return
	}

	h.record(r.Context(), req, results)
	writeJSON(w, http.StatusOK, results)
}

// record persists the search and stamps library IDs onto results. Failures
// are logged only.
func (h *Handler) record(ctx context.Context, req models.SearchRequest, results []models.AnalyzedRepo) {
	if h.store == nil {
		return
	}

	repos := make([]models.Repo, len(results))
	for i, res := range results {
		repos[i] = res.Repo
	}

	ids, err := h.store.RecordSearch(ctx, req, repos)
	if err != nil {
		h.log.Warn("recording search failed", zap.Error(err))
		return
	}
	for i := range results {
		if i < len(ids) {
			id := ids[i]
			results[i].LibraryID = &id
		}
	}
}

func (h *Handler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = min(n, maxSearchHistory)
	}

	searches, err := h.store.RecentSearches(r.Context(), limit)
	if err != nil {
		h.log.Error("listing searches failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve searches", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, searches)
}

type createBookmarkRequest struct {
	UserID    *int64   `json:"userId"`
	LibraryID *int64   `json:"libraryId"`
	Notes     *string  `json:"notes"`
	Tags      []string `json:"tags"`
}

func (h *Handler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	var body createBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if body.UserID == nil || body.LibraryID == nil || *body.UserID <= 0 || *body.LibraryID <= 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields", nil)
		return
	}

	created, err := h.store.CreateBookmark(r.Context(), models.Bookmark{
		UserID:    *body.UserID,
		LibraryID: *body.LibraryID,
		Notes:     body.Notes,
		Tags:      body.Tags,
	})
	if err != nil {
		h.log.Error("creating bookmark failed",
			zap.Int64("user_id", *body.UserID),
			zap.Int64("library_id", *body.LibraryID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create bookmark", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	bookmarks, err := h.store.ListBookmarks(r.Context(), userID)
	if err != nil {
		h.log.Error("listing bookmarks failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve bookmarks", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bookmark ID", nil)
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	err = h.store.DeleteBookmark(r.Context(), id, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Bookmark not found", nil)
	case err != nil:
		h.log.Error("deleting bookmark failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete bookmark", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Bookmark deleted successfully"})
	}
}

// userIDParam reads the required userId query parameter, writing a 400 when
// it is absent or malformed.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "User ID is required", nil)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", nil)
		return 0, false
	}
	return id, true
}
