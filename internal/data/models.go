package data

import "time"

// FeaturedImagePosition names the vertical crop region of a featured image.
type FeaturedImagePosition string

const (
	PositionTop    FeaturedImagePosition = "top"
	PositionCenter FeaturedImagePosition = "center"
	PositionBottom FeaturedImagePosition = "bottom"
)

// ValidPosition reports whether s is one of the allowed crop positions.
func ValidPosition(s string) bool {
	switch FeaturedImagePosition(s) {
	case PositionTop, PositionCenter, PositionBottom:
		return true
	}
	return false
}

// Category represents a codex category.
type Category struct {
	ID          string    `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Entry represents a single codex entry.
type Entry struct {
	ID                    string    `db:"id" json:"id"`
	Slug                  string    `db:"slug" json:"slug"`
	Title                 string    `db:"title" json:"title"`
	Excerpt               *string   `db:"excerpt" json:"excerpt"`
	Body                  string    `db:"body" json:"body"`
	CategoryID            *string   `db:"category_id" json:"category_id"`
	FeaturedImageURL      *string   `db:"featured_image_url" json:"featured_image_url"`
	FeaturedImageCaption  *string   `db:"featured_image_caption" json:"featured_image_caption"`
	FeaturedImagePosition *string   `db:"featured_image_position" json:"featured_image_position"`
	Pinned                bool      `db:"pinned" json:"pinned"`
	AuthorID              *string   `db:"author_id" json:"author_id"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Link is a directed "related entry" edge between two entries.
type Link struct {
	ID            string    `db:"id" json:"id"`
	SourceEntryID string    `db:"source_entry_id" json:"source_entry_id"`
	TargetEntryID string    `db:"target_entry_id" json:"target_entry_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EntryImage is an auxiliary image attached to an entry.
type EntryImage struct {
	ID        string    `db:"id" json:"id"`
	EntryID   string    `db:"entry_id" json:"entry_id"`
	URL       string    `db:"url" json:"url"`
	Caption   *string   `db:"caption" json:"caption"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LinkedEntry is a target entry annotated with the id of the edge pointing at it.
type LinkedEntry struct {
	Entry
	LinkID string `json:"link_id"`
}

// EntryWithRelations is an entry hydrated with its category, outbound linked
// entries, and images, as rendered on a detail page.
type EntryWithRelations struct {
	Entry
	Category      *Category     `json:"category"`
	LinkedEntries []LinkedEntry `json:"linked_entries"`
	Images        []EntryImage  `json:"images"`
}

// Export is a full snapshot of the codex dataset.
type Export struct {
	ExportedAt  time.Time     `json:"exported_at"`
	Categories  []*Category   `json:"categories"`
	Entries     []*Entry      `json:"entries"`
	Links       []*Link       `json:"links"`
	EntryImages []*EntryImage `json:"entry_images"`
}
