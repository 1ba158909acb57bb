package knowledge

import "time"

// ContentType categorizes the kind of knowledge stored in the index.
type ContentType string

const (
	TypeVendor      ContentType = "vendor"
	TypeBenchmark   ContentType = "benchmark"
	TypeOpportunity ContentType = "opportunity"
	TypeCaseStudy   ContentType = "case_study"
	TypePattern     ContentType = "pattern"
	TypeInsight     ContentType = "insight"
)

// ValidContentTypes is the set of recognized content types.
var ValidContentTypes = map[ContentType]bool{
	TypeVendor:      true,
	TypeBenchmark:   true,
	TypeOpportunity: true,
	TypeCaseStudy:   true,
	TypePattern:     true,
	TypeInsight:     true,
}

// Item is a unit of curated reference content. Items are owned by an external
// curation process; this system only reads and re-embeds them.
// (ContentType, ContentID) is unique. An empty Industry means the item is
// universal and matches every industry filter.
type Item struct {
	ContentType ContentType       `json:"content_type" yaml:"content_type"`
	ContentID   string            `json:"content_id" yaml:"content_id"`
	Industry    string            `json:"industry,omitempty" yaml:"industry,omitempty"`
	Title       string            `json:"title" yaml:"title"`
	Body        string            `json:"body" yaml:"body"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ContentHash string            `json:"content_hash" yaml:"-"`
	// EmbeddedHash is the content hash at the time the embedding was
	// generated. The item needs re-embedding when it diverges from
	// ContentHash; until then search keeps serving the last embedding.
	EmbeddedHash string     `json:"embedded_hash,omitempty" yaml:"-"`
	EmbeddedAt   *time.Time `json:"embedded_at,omitempty" yaml:"-"`
	Version      int        `json:"version" yaml:"-"`
}

// NeedsUpdate reports whether the item's body changed since it was embedded.
func (i Item) NeedsUpdate() bool {
	return i.EmbeddedHash == "" || i.EmbeddedHash != i.ContentHash
}

// Key returns the unique identifier used for the vector index document.
func (i Item) Key() string {
	return string(i.ContentType) + ":" + i.ContentID
}

// SearchFilter narrows a semantic search.
type SearchFilter struct {
	// ContentType restricts results to one content type when set.
	ContentType ContentType
	// Industry matches items tagged with this industry or universal items.
	Industry string
	// Category is a generic request category resolved through the alias
	// table onto the finer-grained taxonomy stored in item metadata.
	Category string
	// TopK caps the number of results (defaults applied by the index).
	TopK int
	// SimilarityFloor excludes matches below this cosine similarity.
	SimilarityFloor float32
}

// SearchResult pairs an item with its similarity score.
type SearchResult struct {
	Item        Item    `json:"item"`
	Similarity  float32 `json:"similarity"`
	NeedsUpdate bool    `json:"needs_update"`
}
