package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/thehashton/alterun/internal/cache"
	"github.com/thehashton/alterun/internal/logger"
	"github.com/thehashton/alterun/internal/middleware"
	"github.com/thehashton/alterun/internal/service"
	"github.com/thehashton/alterun/internal/view"
)

// CodexHandler serves the public codex pages.
type CodexHandler struct {
	codex *service.CodexService
	view  *view.View
	cache *cache.Cache
	log   logger.Logger
}

// NewCodexHandler creates a new CodexHandler.
func NewCodexHandler(codex *service.CodexService, v *view.View, c *cache.Cache, log logger.Logger) *CodexHandler {
	return &CodexHandler{
		codex: codex,
		view:  v,
		cache: c,
		log:   log,
	}
}

// serveCached writes a previously rendered body for this URL, if one is
// still cached. Only anonymous requests are served from cache so editors
// never see a stale page right after their own edit.
func (h *CodexHandler) serveCached(w http.ResponseWriter, r *http.Request) bool {
	if middleware.GetUserInfo(r.Context()).IsAuthenticated() {
		return false
	}
	body, err := h.cache.Get(r.URL.RequestURI())
	if err != nil {
		h.log.Error(err, "Render cache read failed")
		return false
	}
	if body == nil {
		return false
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
	return true
}

// renderAndCache renders a page template and stores the body under the
// request URL for subsequent anonymous requests.
func (h *CodexHandler) renderAndCache(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	body, err := h.view.RenderToBytes(name, data)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	if !middleware.GetUserInfo(r.Context()).IsAuthenticated() {
		if err := h.cache.Set(r.URL.RequestURI(), body); err != nil {
			h.log.Error(err, "Render cache write failed")
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
	return nil
}

// homeHandler renders the landing page with the pinned and latest entries.
func (h *CodexHandler) homeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.serveCached(w, r) {
		return nil
	}
	page, err := h.codex.ListEntries(r.Context(), service.ListOptions{Page: 1, PageSize: 6})
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entries", Code: http.StatusInternalServerError}
	}
	data := map[string]interface{}{
		"Entries":  page.Entries,
		"UserInfo": middleware.GetUserInfo(r.Context()),
	}
	return h.renderAndCache(w, r, "home.html", data)
}

// listHandler renders the codex listing with optional category, search, and
// page query parameters.
func (h *CodexHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.serveCached(w, r) {
		return nil
	}

	opts := service.ListOptions{
		CategorySlug: r.URL.Query().Get("category"),
		Search:       r.URL.Query().Get("q"),
		Page:         1,
		PageSize:     service.DefaultPageSize,
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		opts.Page = p
	}

	page, err := h.codex.ListEntries(r.Context(), opts)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entries", Code: http.StatusInternalServerError}
	}
	categories, err := h.codex.ListCategoryViews(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load categories", Code: http.StatusInternalServerError}
	}

	data := map[string]interface{}{
		"Page":           page,
		"Categories":     categories,
		"ActiveCategory": opts.CategorySlug,
		"Search":         r.URL.Query().Get("q"),
		"UserInfo":       middleware.GetUserInfo(r.Context()),
	}
	return h.renderAndCache(w, r, "codex_list.html", data)
}

// entryHandler renders a single entry detail page, resolving the slug
// through its lookup candidates.
func (h *CodexHandler) entryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.serveCached(w, r) {
		return nil
	}

	slug := chi.URLParam(r, "slug")
	entry, err := h.codex.GetEntryBySlug(r.Context(), slug)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entry", Code: http.StatusInternalServerError}
	}
	if entry == nil {
		return &middleware.AppError{Error: nil, Message: "Entry not found", Code: http.StatusNotFound}
	}

	data := map[string]interface{}{
		"Entry":    entry,
		"UserInfo": middleware.GetUserInfo(r.Context()),
	}
	return h.renderAndCache(w, r, "codex_entry.html", data)
}

// categoriesHandler renders the category index with rendered descriptions.
func (h *CodexHandler) categoriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.serveCached(w, r) {
		return nil
	}
	categories, err := h.codex.ListCategoryViews(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load categories", Code: http.StatusInternalServerError}
	}
	data := map[string]interface{}{
		"Categories": categories,
		"UserInfo":   middleware.GetUserInfo(r.Context()),
	}
	return h.renderAndCache(w, r, "categories.html", data)
}
