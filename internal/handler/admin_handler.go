package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thehashton/alterun/internal/logger"
	"github.com/thehashton/alterun/internal/middleware"
	"github.com/thehashton/alterun/internal/service"
	"github.com/thehashton/alterun/internal/storage"
	"github.com/thehashton/alterun/internal/view"
)

// AdminHandler serves the admin dashboard: category, entry, and image
// management, image upload, and the export download.
type AdminHandler struct {
	codex    *service.CodexService
	uploader *storage.Uploader
	view     *view.View
	log      logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(codex *service.CodexService, uploader *storage.Uploader, v *view.View, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		codex:    codex,
		uploader: uploader,
		view:     v,
		log:      log,
	}
}

// formError extracts the user-facing message for a failed mutation. Store
// failures surface the backend's message verbatim.
func formError(err error) string {
	if service.IsValidation(err) {
		// Strip the sentinel prefix, keep the message.
		msg := err.Error()
		if idx := strings.Index(msg, ": "); idx >= 0 {
			return msg[idx+2:]
		}
		return msg
	}
	return err.Error()
}

// dashboardHandler renders the admin overview with content counts.
func (h *AdminHandler) dashboardHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.codex.ListEntries(r.Context(), service.ListOptions{Page: 1, PageSize: 1})
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entries", Code: http.StatusInternalServerError}
	}
	categories, err := h.codex.ListCategories(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load categories", Code: http.StatusInternalServerError}
	}
	data := map[string]interface{}{
		"EntryCount":    page.Total,
		"CategoryCount": len(categories),
		"UserInfo":      middleware.GetUserInfo(r.Context()),
	}
	if err := h.view.Render(w, "admin_dashboard.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render dashboard", Code: http.StatusInternalServerError}
	}
	return nil
}

// Entries

// entriesHandler renders the admin entry listing.
func (h *AdminHandler) entriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	opts := service.ListOptions{
		Search:   r.URL.Query().Get("q"),
		Page:     1,
		PageSize: service.MaxPageSize,
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		opts.Page = p
	}
	page, err := h.codex.ListEntries(r.Context(), opts)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entries", Code: http.StatusInternalServerError}
	}
	data := map[string]interface{}{
		"Page":     page,
		"Search":   opts.Search,
		"UserInfo": middleware.GetUserInfo(r.Context()),
	}
	if err := h.view.Render(w, "admin_entries.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render entry list", Code: http.StatusInternalServerError}
	}
	return nil
}

// entryFormData loads what the entry form needs besides the entry itself:
// the category options and the link-target options.
func (h *AdminHandler) entryFormData(r *http.Request) (map[string]interface{}, error) {
	categories, err := h.codex.ListCategories(r.Context())
	if err != nil {
		return nil, err
	}
	// All entries are offered as link targets; acceptable at this scale.
	all, err := h.codex.ListEntries(r.Context(), service.ListOptions{Page: 1, PageSize: service.MaxPageSize})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"Categories": categories,
		"AllEntries": all.Entries,
		"UserInfo":   middleware.GetUserInfo(r.Context()),
	}, nil
}

// newEntryHandler renders the blank entry form.
func (h *AdminHandler) newEntryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	data, err := h.entryFormData(r)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load form data", Code: http.StatusInternalServerError}
	}
	if err := h.view.Render(w, "admin_entry_form.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render entry form", Code: http.StatusInternalServerError}
	}
	return nil
}

// parseEntryForm maps the submitted form fields onto an EntryInput.
func parseEntryForm(r *http.Request) service.EntryInput {
	pinned := r.FormValue("pinned")
	var linked []string
	for _, id := range strings.Split(r.FormValue("linked_entry_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			linked = append(linked, id)
		}
	}
	return service.EntryInput{
		Title:                 strings.TrimSpace(r.FormValue("title")),
		Slug:                  strings.TrimSpace(r.FormValue("slug")),
		Excerpt:               strings.TrimSpace(r.FormValue("excerpt")),
		Body:                  strings.TrimSpace(r.FormValue("body")),
		CategoryID:            strings.TrimSpace(r.FormValue("category_id")),
		FeaturedImageURL:      strings.TrimSpace(r.FormValue("featured_image_url")),
		FeaturedImageCaption:  strings.TrimSpace(r.FormValue("featured_image_caption")),
		FeaturedImagePosition: strings.TrimSpace(r.FormValue("featured_image_position")),
		Pinned:                pinned == "on" || pinned == "true",
		LinkedEntryIDs:        linked,
	}
}

// createEntryHandler handles the new-entry form submission.
func (h *AdminHandler) createEntryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subject := middleware.GetUserInfo(r.Context()).Subject
	in := parseEntryForm(r)
	if _, err := h.codex.CreateEntry(r.Context(), subject, in); err != nil {
		data, ferr := h.entryFormData(r)
		if ferr != nil {
			return &middleware.AppError{Error: ferr, Message: "Failed to load form data", Code: http.StatusInternalServerError}
		}
		data["Error"] = formError(err)
		data["Input"] = in
		if rerr := h.view.Render(w, "admin_entry_form.html", data); rerr != nil {
			return &middleware.AppError{Error: rerr, Message: "Failed to render entry form", Code: http.StatusInternalServerError}
		}
		return nil
	}
	http.Redirect(w, r, "/admin/codex", http.StatusFound)
	return nil
}

// editEntryHandler renders the edit form for an existing entry.
func (h *AdminHandler) editEntryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	entry, err := h.codex.GetEntryWithRelationsByID(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entry", Code: http.StatusInternalServerError}
	}
	if entry == nil {
		return &middleware.AppError{Error: fmt.Errorf("entry %s not found", id), Message: "Entry not found", Code: http.StatusNotFound}
	}
	data, err := h.entryFormData(r)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load form data", Code: http.StatusInternalServerError}
	}
	data["Entry"] = entry
	if err := h.view.Render(w, "admin_entry_form.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render entry form", Code: http.StatusInternalServerError}
	}
	return nil
}

// updateEntryHandler handles the edit form submission.
func (h *AdminHandler) updateEntryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	subject := middleware.GetUserInfo(r.Context()).Subject
	in := parseEntryForm(r)
	if _, err := h.codex.UpdateEntry(r.Context(), subject, id, in); err != nil {
		entry, _ := h.codex.GetEntryWithRelationsByID(r.Context(), id)
		data, ferr := h.entryFormData(r)
		if ferr != nil {
			return &middleware.AppError{Error: ferr, Message: "Failed to load form data", Code: http.StatusInternalServerError}
		}
		data["Error"] = formError(err)
		data["Entry"] = entry
		data["Input"] = in
		if rerr := h.view.Render(w, "admin_entry_form.html", data); rerr != nil {
			return &middleware.AppError{Error: rerr, Message: "Failed to render entry form", Code: http.StatusInternalServerError}
		}
		return nil
	}
	http.Redirect(w, r, "/admin/codex", http.StatusFound)
	return nil
}

// deleteEntryHandler removes an entry.
func (h *AdminHandler) deleteEntryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subject := middleware.GetUserInfo(r.Context()).Subject
	if err := h.codex.DeleteEntry(r.Context(), subject, chi.URLParam(r, "id")); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to delete entry", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/admin/codex", http.StatusFound)
	return nil
}

// Categories

// categoriesHandler renders the category listing with the create form.
func (h *AdminHandler) categoriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories, err := h.codex.ListCategories(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load categories", Code: http.StatusInternalServerError}
	}
	data := map[string]interface{}{
		"Categories": categories,
		"UserInfo":   middleware.GetUserInfo(r.Context()),
	}
	if err := h.view.Render(w, "admin_categories.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render category list", Code: http.StatusInternalServerError}
	}
	return nil
}

// parseCategoryForm maps the submitted form fields onto a CategoryInput.
func parseCategoryForm(r *http.Request) service.CategoryInput {
	sortOrder, _ := strconv.Atoi(r.FormValue("sort_order"))
	return service.CategoryInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Slug:        strings.TrimSpace(r.FormValue("slug")),
		Description: strings.TrimSpace(r.FormValue("description")),
		SortOrder:   sortOrder,
	}
}

// createCategoryHandler handles the new-category form submission.
func (h *AdminHandler) createCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subject := middleware.GetUserInfo(r.Context()).Subject
	in := parseCategoryForm(r)
	if _, err := h.codex.CreateCategory(r.Context(), subject, in); err != nil {
		categories, ferr := h.codex.ListCategories(r.Context())
		if ferr != nil {
			return &middleware.AppError{Error: ferr, Message: "Failed to load categories", Code: http.StatusInternalServerError}
		}
		data := map[string]interface{}{
			"Categories": categories,
			"Error":      formError(err),
			"Input":      in,
			"UserInfo":   middleware.GetUserInfo(r.Context()),
		}
		if rerr := h.view.Render(w, "admin_categories.html", data); rerr != nil {
			return &middleware.AppError{Error: rerr, Message: "Failed to render category list", Code: http.StatusInternalServerError}
		}
		return nil
	}
	http.Redirect(w, r, "/admin/codex/categories", http.StatusFound)
	return nil
}

// editCategoryHandler renders the edit form for an existing category.
func (h *AdminHandler) editCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	categories, err := h.codex.ListCategories(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load categories", Code: http.StatusInternalServerError}
	}
	for _, category := range categories {
		if category.ID == id {
			data := map[string]interface{}{
				"Category": category,
				"UserInfo": middleware.GetUserInfo(r.Context()),
			}
			if err := h.view.Render(w, "admin_category_form.html", data); err != nil {
				return &middleware.AppError{Error: err, Message: "Failed to render category form", Code: http.StatusInternalServerError}
			}
			return nil
		}
	}
	return &middleware.AppError{Error: fmt.Errorf("category %s not found", id), Message: "Category not found", Code: http.StatusNotFound}
}

// updateCategoryHandler handles the category edit form submission.
func (h *AdminHandler) updateCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	subject := middleware.GetUserInfo(r.Context()).Subject
	in := parseCategoryForm(r)
	if _, err := h.codex.UpdateCategory(r.Context(), subject, id, in); err != nil {
		data := map[string]interface{}{
			"Error":    formError(err),
			"Input":    in,
			"UserInfo": middleware.GetUserInfo(r.Context()),
		}
		if rerr := h.view.Render(w, "admin_category_form.html", data); rerr != nil {
			return &middleware.AppError{Error: rerr, Message: "Failed to render category form", Code: http.StatusInternalServerError}
		}
		return nil
	}
	http.Redirect(w, r, "/admin/codex/categories", http.StatusFound)
	return nil
}

// deleteCategoryHandler removes a category. Entries keep their now-dangling
// category reference.
func (h *AdminHandler) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subject := middleware.GetUserInfo(r.Context()).Subject
	if err := h.codex.DeleteCategory(r.Context(), subject, chi.URLParam(r, "id")); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to delete category", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/admin/codex/categories", http.StatusFound)
	return nil
}

// Images

// addEntryImageHandler attaches an already-uploaded image URL to an entry.
// The new image's sort order is the entry's current image count.
func (h *AdminHandler) addEntryImageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entryID := chi.URLParam(r, "id")
	subject := middleware.GetUserInfo(r.Context()).Subject

	entry, err := h.codex.GetEntryWithRelationsByID(r.Context(), entryID)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load entry", Code: http.StatusInternalServerError}
	}
	if entry == nil {
		return &middleware.AppError{Error: fmt.Errorf("entry %s not found", entryID), Message: "Entry not found", Code: http.StatusNotFound}
	}

	imageURL := strings.TrimSpace(r.FormValue("url"))
	caption := strings.TrimSpace(r.FormValue("caption"))
	if _, err := h.codex.AddEntryImage(r.Context(), subject, entryID, imageURL, caption, len(entry.Images)); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to add image", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/admin/codex/entries/"+entryID, http.StatusFound)
	return nil
}

// updateEntryImageHandler patches an image's url, caption, or sort order.
func (h *AdminHandler) updateEntryImageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subject := middleware.GetUserInfo(r.Context()).Subject
	var patch service.ImagePatch
	if r.Form == nil {
		r.ParseForm()
	}
	if v, ok := r.Form["url"]; ok && len(v) > 0 {
		patch.URL = &v[0]
	}
	if v, ok := r.Form["caption"]; ok && len(v) > 0 {
		patch.Caption = &v[0]
	}
	if v, ok := r.Form["sort_order"]; ok && len(v) > 0 {
		if n, err := strconv.Atoi(v[0]); err == nil {
			patch.SortOrder = &n
		}
	}
	if err := h.codex.UpdateEntryImage(r.Context(), subject, chi.URLParam(r, "id"), patch); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to update image", Code: http.StatusInternalServerError}
	}
	redirectBack(w, r, "/admin/codex")
	return nil
}

// deleteEntryImageHandler removes an image row. Remaining images keep their
// sort order; gaps are not renumbered.
func (h *AdminHandler) deleteEntryImageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subject := middleware.GetUserInfo(r.Context()).Subject
	if err := h.codex.DeleteEntryImage(r.Context(), subject, chi.URLParam(r, "id")); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to delete image", Code: http.StatusInternalServerError}
	}
	redirectBack(w, r, "/admin/codex")
	return nil
}

func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := r.FormValue("return_to")
	if target == "" || !strings.HasPrefix(target, "/") {
		target = fallback
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Upload and export

// uploadHandler accepts a multipart image upload and returns the stored
// object's public URL as JSON. Failures are reported; nothing is rolled back.
func (h *AdminHandler) uploadHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	file, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "No file"})
		return
	}
	defer file.Close()

	prefix := r.FormValue("prefix")
	if prefix == "" {
		prefix = "codex"
	}
	publicURL, err := h.uploader.Upload(r.Context(), prefix, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.log.Error(err, "Image upload failed")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"path": publicURL})
}

// exportHandler streams the full codex snapshot as a JSON download.
func (h *AdminHandler) exportHandler(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetUserInfo(r.Context()).Subject
	snapshot, err := h.codex.ExportCodex(r.Context(), subject)
	if err != nil {
		code := http.StatusInternalServerError
		if service.IsUnauthorized(err) {
			code = http.StatusUnauthorized
		}
		http.Error(w, err.Error(), code)
		return
	}

	filename := fmt.Sprintf("codex-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		h.log.Error(err, "Failed to encode export")
	}
}
