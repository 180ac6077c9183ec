package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/thehashton/alterun/internal/data"
)

// DefaultPageSize is the listing page size used when the caller supplies none.
const DefaultPageSize = 12

// MaxPageSize caps the listing page size.
const MaxPageSize = 50

// EntryRepository defines the database operations the service needs for entries.
type EntryRepository interface {
	List(ctx context.Context, filter data.EntryFilter) ([]*data.Entry, int, error)
	GetBySlug(ctx context.Context, slug string) (*data.Entry, error)
	GetByID(ctx context.Context, id string) (*data.Entry, error)
	GetByIDs(ctx context.Context, ids []string) ([]*data.Entry, error)
	GetAll(ctx context.Context) ([]*data.Entry, error)
	Create(ctx context.Context, entry *data.Entry) error
	Update(ctx context.Context, entry *data.Entry) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines the database operations the service needs for categories.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]*data.Category, error)
	GetByID(ctx context.Context, id string) (*data.Category, error)
	GetBySlug(ctx context.Context, slug string) (*data.Category, error)
	Create(ctx context.Context, category *data.Category) error
	Update(ctx context.Context, category *data.Category) error
	Delete(ctx context.Context, id string) error
}

// LinkRepository defines the database operations the service needs for link edges.
type LinkRepository interface {
	ListBySource(ctx context.Context, sourceEntryID string) ([]*data.Link, error)
	GetAll(ctx context.Context) ([]*data.Link, error)
	ReplaceForEntry(ctx context.Context, sourceEntryID string, targetEntryIDs []string) error
}

// ImageRepository defines the database operations the service needs for entry images.
type ImageRepository interface {
	ListByEntry(ctx context.Context, entryID string) ([]data.EntryImage, error)
	GetByID(ctx context.Context, id string) (*data.EntryImage, error)
	GetAll(ctx context.Context) ([]*data.EntryImage, error)
	Create(ctx context.Context, image *data.EntryImage) error
	Update(ctx context.Context, image *data.EntryImage) error
	Delete(ctx context.Context, id string) error
}

// RenderCache is the slice of the render cache the service uses: mutations
// only ever invalidate, they never read or write cached pages themselves.
type RenderCache interface {
	Delete(key string) error
	DeletePrefix(prefix string) error
}

// ListOptions narrows and pages a public or admin entry listing.
type ListOptions struct {
	CategorySlug string
	Search       string
	Page         int
	PageSize     int
}

// EntryPage is one page of an entry listing.
type EntryPage struct {
	Entries    []*data.Entry
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// EntryInput carries the form fields of an entry create or update.
type EntryInput struct {
	Title                 string
	Slug                  string
	Excerpt               string
	Body                  string
	CategoryID            string
	FeaturedImageURL      string
	FeaturedImageCaption  string
	FeaturedImagePosition string
	Pinned                bool
	LinkedEntryIDs        []string
}

// CategoryInput carries the form fields of a category create or update.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	SortOrder   int
}

// ImagePatch carries the optional fields of an entry image update. Nil fields
// keep their current value.
type ImagePatch struct {
	URL       *string
	Caption   *string
	SortOrder *int
}

// CategoryView is a category prepared for public rendering, with its
// Markdown description rendered to HTML.
type CategoryView struct {
	*data.Category
	DescriptionHTML template.HTML
}

// CodexService provides the business logic of the codex: slug handling,
// validation, sanitization, link replacement, and render-cache invalidation.
type CodexService struct {
	entries    EntryRepository
	categories CategoryRepository
	links      LinkRepository
	images     ImageRepository
	cache      RenderCache
	sanitizer  *bluemonday.Policy
	markdown   goldmark.Markdown
}

// NewCodexService creates a new CodexService.
func NewCodexService(entries EntryRepository, categories CategoryRepository, links LinkRepository, images ImageRepository, cache RenderCache) *CodexService {
	// UGCPolicy allows the formatting the rich-text editor produces (links,
	// lists, emphasis, images) while stripping dangerous HTML.
	return &CodexService{
		entries:    entries,
		categories: categories,
		links:      links,
		images:     images,
		cache:      cache,
		sanitizer:  bluemonday.UGCPolicy(),
		markdown:   goldmark.New(),
	}
}

// ensureEditor rejects mutations without an authenticated session subject.
func ensureEditor(subject string) error {
	if subject == "" || subject == "anonymous" {
		return ErrUnauthorized
	}
	return nil
}

// invalidate drops the cached public listing pages, the category index, admin
// listing pages, and, when a slug is given, the cached entry detail view.
func (s *CodexService) invalidate(entrySlug string) {
	// Best effort; a stale cache entry expires on its own TTL.
	_ = s.cache.Delete("/")
	_ = s.cache.Delete("/categories")
	_ = s.cache.DeletePrefix("/codex")
	_ = s.cache.DeletePrefix("/admin/codex")
	if entrySlug != "" {
		_ = s.cache.Delete("/codex/" + entrySlug)
	}
}

// ListEntries returns one page of entries. The page is clamped to at least 1
// and the page size to [1, MaxPageSize]. Pinned entries sort before unpinned
// ones, then title ascending.
func (s *CodexService) ListEntries(ctx context.Context, opts ListOptions) (*EntryPage, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	filter := data.EntryFilter{
		Search: ScrubSearchTerm(opts.Search),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	if opts.CategorySlug != "" {
		category, err := s.categories.GetBySlug(ctx, opts.CategorySlug)
		if err != nil {
			return nil, err
		}
		// An unknown category slug leaves the listing unfiltered.
		if category != nil {
			filter.CategoryID = &category.ID
		}
	}

	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return &EntryPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetEntryBySlug resolves a possibly encoded, possibly case-drifted slug via
// its lookup candidates and returns the first matching entry hydrated with
// its category, linked entries, and images. Returns nil when no candidate
// matches.
func (s *CodexService) GetEntryBySlug(ctx context.Context, rawSlug string) (*data.EntryWithRelations, error) {
	for _, candidate := range LookupCandidates(rawSlug) {
		entry, err := s.entries.GetBySlug(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return s.hydrate(ctx, entry)
		}
	}
	return nil, nil
}

// GetEntryByID retrieves a bare entry row. Returns nil when absent.
func (s *CodexService) GetEntryByID(ctx context.Context, id string) (*data.Entry, error) {
	return s.entries.GetByID(ctx, id)
}

// GetEntryWithRelationsByID is the admin edit-form load: the entry hydrated
// with category, linked entries, and images. Returns nil when absent.
func (s *CodexService) GetEntryWithRelationsByID(ctx context.Context, id string) (*data.EntryWithRelations, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil || entry == nil {
		return nil, err
	}
	return s.hydrate(ctx, entry)
}

// hydrate attaches the category, outbound linked entries (each annotated with
// its edge id, missing targets skipped), and ordered images to an entry.
func (s *CodexService) hydrate(ctx context.Context, entry *data.Entry) (*data.EntryWithRelations, error) {
	result := &data.EntryWithRelations{Entry: *entry}

	if entry.CategoryID != nil {
		// A dangling category reference reads as "no category".
		category, err := s.categories.GetByID(ctx, *entry.CategoryID)
		if err != nil {
			return nil, err
		}
		result.Category = category
	}

	links, err := s.links.ListBySource(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		ids := make([]string, len(links))
		for i, link := range links {
			ids[i] = link.TargetEntryID
		}
		targets, err := s.entries.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*data.Entry, len(targets))
		for _, target := range targets {
			byID[target.ID] = target
		}
		for _, link := range links {
			if target, ok := byID[link.TargetEntryID]; ok {
				result.LinkedEntries = append(result.LinkedEntries, data.LinkedEntry{Entry: *target, LinkID: link.ID})
			}
		}
	}

	images, err := s.images.ListByEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	result.Images = images
	return result, nil
}

// CreateEntry validates and stores a new entry, then creates its outbound
// link set and invalidates the cached listings and detail view.
func (s *CodexService) CreateEntry(ctx context.Context, subject string, in EntryInput) (*data.Entry, error) {
	if err := ensureEditor(subject); err != nil {
		return nil, err
	}

	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Title)
	}
	if in.Title == "" || slug == "" {
		return nil, fmt.Errorf("%w: Title is required", ErrValidation)
	}

	position := in.FeaturedImagePosition
	if !data.ValidPosition(position) {
		position = string(data.PositionTop)
	}

	now := time.Now().UTC()
	entry := &data.Entry{
		ID:                    uuid.NewString(),
		Slug:                  slug,
		Title:                 in.Title,
		Excerpt:               optional(in.Excerpt),
		Body:                  s.sanitizer.Sanitize(in.Body),
		CategoryID:            optional(in.CategoryID),
		FeaturedImageURL:      optional(in.FeaturedImageURL),
		FeaturedImageCaption:  optional(in.FeaturedImageCaption),
		FeaturedImagePosition: &position,
		Pinned:                in.Pinned,
		AuthorID:              optional(subject),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	if len(in.LinkedEntryIDs) > 0 {
		if err := s.links.ReplaceForEntry(ctx, entry.ID, in.LinkedEntryIDs); err != nil {
			return nil, err
		}
	}

	s.invalidate(entry.Slug)
	return entry, nil
}

// UpdateEntry validates and rewrites an entry, replaces its full outbound
// link set with the supplied target ids, and invalidates caches. The link
// set is replaced wholesale on every update, never diffed.
func (s *CodexService) UpdateEntry(ctx context.Context, subject, id string, in EntryInput) (*data.Entry, error) {
	if err := ensureEditor(subject); err != nil {
		return nil, err
	}
	if in.Title == "" || in.Slug == "" {
		return nil, fmt.Errorf("%w: Title and slug are required", ErrValidation)
	}

	existing, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("entry %s not found", id)
	}

	var position *string
	if data.ValidPosition(in.FeaturedImagePosition) {
		position = &in.FeaturedImagePosition
	}

	entry := &data.Entry{
		ID:                    id,
		Slug:                  in.Slug,
		Title:                 in.Title,
		Excerpt:               optional(in.Excerpt),
		Body:                  s.sanitizer.Sanitize(in.Body),
		CategoryID:            optional(in.CategoryID),
		FeaturedImageURL:      optional(in.FeaturedImageURL),
		FeaturedImageCaption:  optional(in.FeaturedImageCaption),
		FeaturedImagePosition: position,
		Pinned:                in.Pinned,
		AuthorID:              existing.AuthorID,
		CreatedAt:             existing.CreatedAt,
		UpdatedAt:             time.Now().UTC(),
	}
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.links.ReplaceForEntry(ctx, id, in.LinkedEntryIDs); err != nil {
		return nil, err
	}

	s.invalidate(entry.Slug)
	if existing.Slug != entry.Slug {
		// The old detail URL still has a cached render under the old slug.
		_ = s.cache.Delete("/codex/" + existing.Slug)
	}
	return entry, nil
}

// DeleteEntry removes an entry. Edges pointing at it from other entries are
// left dangling; hydration skips targets that no longer resolve.
func (s *CodexService) DeleteEntry(ctx context.Context, subject, id string) error {
	if err := ensureEditor(subject); err != nil {
		return err
	}
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		return err
	}
	slug := ""
	if entry != nil {
		slug = entry.Slug
	}
	s.invalidate(slug)
	return nil
}

// ListCategories returns all categories ordered by sort order, then name.
func (s *CodexService) ListCategories(ctx context.Context) ([]*data.Category, error) {
	return s.categories.GetAll(ctx)
}

// ListCategoryViews returns all categories with their Markdown descriptions
// rendered to HTML for the public category index.
func (s *CodexService) ListCategoryViews(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]CategoryView, len(categories))
	for i, category := range categories {
		views[i] = CategoryView{Category: category}
		if category.Description != nil {
			var buf bytes.Buffer
			if err := s.markdown.Convert([]byte(*category.Description), &buf); err != nil {
				return nil, fmt.Errorf("failed to render category description: %w", err)
			}
			views[i].DescriptionHTML = template.HTML(s.sanitizer.Sanitize(buf.String()))
		}
	}
	return views, nil
}

// CreateCategory validates and stores a new category.
func (s *CodexService) CreateCategory(ctx context.Context, subject string, in CategoryInput) (*data.Category, error) {
	if err := ensureEditor(subject); err != nil {
		return nil, err
	}
	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if in.Name == "" || slug == "" {
		return nil, fmt.Errorf("%w: Name is required", ErrValidation)
	}

	now := time.Now().UTC()
	category := &data.Category{
		ID:          uuid.NewString(),
		Slug:        slug,
		Name:        in.Name,
		Description: optional(in.Description),
		SortOrder:   in.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate("")
	return category, nil
}

// UpdateCategory validates and rewrites a category.
func (s *CodexService) UpdateCategory(ctx context.Context, subject, id string, in CategoryInput) (*data.Category, error) {
	if err := ensureEditor(subject); err != nil {
		return nil, err
	}
	if in.Name == "" || in.Slug == "" {
		return nil, fmt.Errorf("%w: Name and slug are required", ErrValidation)
	}

	existing, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("category %s not found", id)
	}

	category := &data.Category{
		ID:          id,
		Slug:        in.Slug,
		Name:        in.Name,
		Description: optional(in.Description),
		SortOrder:   in.SortOrder,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate("")
	return category, nil
}

// DeleteCategory removes a category without cascading: entries that
// referenced it keep a dangling category_id that reads as "no category".
func (s *CodexService) DeleteCategory(ctx context.Context, subject, id string) error {
	if err := ensureEditor(subject); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate("")
	return nil
}

// AddEntryImage stores a new image row for an entry. Sort order is assigned
// by the caller (the image count at upload time) and never renumbered.
func (s *CodexService) AddEntryImage(ctx context.Context, subject, entryID, imageURL, caption string, sortOrder int) (*data.EntryImage, error) {
	if err := ensureEditor(subject); err != nil {
		return nil, err
	}
	image := &data.EntryImage{
		ID:        uuid.NewString(),
		EntryID:   entryID,
		URL:       imageURL,
		Caption:   optional(caption),
		SortOrder: sortOrder,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.images.Create(ctx, image); err != nil {
		return nil, err
	}
	s.invalidateImageOwner(ctx, entryID)
	return image, nil
}

// UpdateEntryImage patches an image row; nil fields keep their current value.
func (s *CodexService) UpdateEntryImage(ctx context.Context, subject, id string, patch ImagePatch) error {
	if err := ensureEditor(subject); err != nil {
		return err
	}
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if image == nil {
		return fmt.Errorf("entry image %s not found", id)
	}
	if patch.URL != nil {
		image.URL = *patch.URL
	}
	if patch.Caption != nil {
		image.Caption = optional(*patch.Caption)
	}
	if patch.SortOrder != nil {
		image.SortOrder = *patch.SortOrder
	}
	if err := s.images.Update(ctx, image); err != nil {
		return err
	}
	s.invalidateImageOwner(ctx, image.EntryID)
	return nil
}

// DeleteEntryImage removes an image row. The owning entry is looked up first
// so its detail view cache can be invalidated.
func (s *CodexService) DeleteEntryImage(ctx context.Context, subject, id string) error {
	if err := ensureEditor(subject); err != nil {
		return err
	}
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, id); err != nil {
		return err
	}
	if image != nil {
		s.invalidateImageOwner(ctx, image.EntryID)
	}
	return nil
}

func (s *CodexService) invalidateImageOwner(ctx context.Context, entryID string) {
	slug := ""
	if entry, err := s.entries.GetByID(ctx, entryID); err == nil && entry != nil {
		slug = entry.Slug
	}
	s.invalidate(slug)
}

// ExportCodex aggregates every category, entry, link edge, and entry image
// into a single timestamped snapshot. Full-table reads, acceptable at
// hobby-content scale.
func (s *CodexService) ExportCodex(ctx context.Context, subject string) (*data.Export, error) {
	if err := ensureEditor(subject); err != nil {
		return nil, err
	}
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.links.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	images, err := s.images.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return &data.Export{
		ExportedAt:  time.Now().UTC(),
		Categories:  categories,
		Entries:     entries,
		Links:       links,
		EntryImages: images,
	}, nil
}

// optional maps the empty string to a NULL column value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
