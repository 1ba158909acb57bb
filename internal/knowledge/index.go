package knowledge

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/clearscope-ai/clearscope/internal/embeddings"
)

const collectionName = "knowledge"

// Index is the semantic search surface over the knowledge catalog. Item
// content lives in the SQLite store; the chromem collection holds one
// versioned embedding per item. Reads are stateless and freely parallel;
// re-embedding replaces a document wholesale, so a concurrent query always
// sees the last consistent embedding.
type Index struct {
	store      *Store
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
	aliases    *Aliases
	topK       int
	floor      float32
}

// NewIndex creates an in-memory Index over the given item store.
func NewIndex(store *Store, embedder embeddings.Embedder, aliases *Aliases, topK int, floor float32) (*Index, error) {
	if aliases == nil {
		aliases = NewAliases()
	}
	if topK <= 0 {
		topK = 5
	}

	cdb := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)
	col, err := cdb.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		store:      store,
		db:         cdb,
		collection: col,
		embedFunc:  ef,
		aliases:    aliases,
		topK:       topK,
		floor:      floor,
	}, nil
}

// IndexItem embeds the item's current content and records the embedding
// generation in the store. Called by the curation/refresh writer path.
func (x *Index) IndexItem(ctx context.Context, item *Item) error {
	doc := chromem.Document{
		ID:      item.Key(),
		Content: item.Title + "\n\n" + item.Body,
		Metadata: map[string]string{
			"content_type":  string(item.ContentType),
			"content_id":    item.ContentID,
			"industry":      item.Industry,
			"category":      item.Metadata["category"],
			"embedded_hash": item.ContentHash,
			"version":       strconv.Itoa(item.Version),
		},
	}

	if err := x.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("adding document %s: %w", item.Key(), err)
	}
	return x.store.MarkEmbedded(ctx, item.ContentType, item.ContentID, item.ContentHash)
}

// Search performs a filtered nearest-neighbor search. Industry filtering
// includes both industry-exact and universal items; a pure-equality filter
// would silently starve cross-industry content. Stale items are still
// returned on their last embedding, flagged via NeedsUpdate.
func (x *Index) Search(ctx context.Context, query string, filter SearchFilter) ([]SearchResult, error) {
	topK := filter.TopK
	if topK <= 0 {
		topK = x.topK
	}
	floor := filter.SimilarityFloor
	if floor <= 0 {
		floor = x.floor
	}

	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// Over-fetch to leave headroom for the metadata post-filters below;
	// chromem's where clause only supports exact equality.
	fetch := topK * 4
	if fetch > count {
		fetch = count
	}

	var where map[string]string
	if filter.ContentType != "" {
		where = map[string]string{"content_type": string(filter.ContentType)}
	}

	results, err := x.collection.Query(ctx, query, fetch, where, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge query: %w", err)
	}

	out := make([]SearchResult, 0, topK)
	for _, r := range results {
		if r.Similarity < floor {
			continue
		}
		// Industry-exact or universal, never another industry's items.
		if filter.Industry != "" {
			industry := r.Metadata["industry"]
			if industry != "" && industry != filter.Industry {
				continue
			}
		}
		if filter.Category != "" && !x.aliases.Matches(filter.Category, r.Metadata["category"]) {
			continue
		}

		item, err := x.store.Get(ctx,
			ContentType(r.Metadata["content_type"]), r.Metadata["content_id"])
		if err != nil {
			return nil, fmt.Errorf("loading item for %s: %w", r.ID, err)
		}
		if item == nil {
			// Embedding for an item removed from the catalog; skip it.
			continue
		}

		out = append(out, SearchResult{
			Item:        *item,
			Similarity:  r.Similarity,
			NeedsUpdate: item.NeedsUpdate(),
		})
		if len(out) == topK {
			break
		}
	}

	return out, nil
}

// RefreshStale re-embeds every item whose content hash diverged from its
// embedded hash. onProgress, if set, is called per item.
func (x *Index) RefreshStale(ctx context.Context, onProgress func(current, total int, key string)) (int, error) {
	stale, err := x.store.ListStale(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stale items: %w", err)
	}

	for i := range stale {
		if err := x.IndexItem(ctx, &stale[i]); err != nil {
			return i, err
		}
		if onProgress != nil {
			onProgress(i+1, len(stale), stale[i].Key())
		}
	}
	return len(stale), nil
}

// Count returns the number of embedded documents.
func (x *Index) Count() int {
	return x.collection.Count()
}

// Persist saves the vector index to the given directory.
func (x *Index) Persist(dir string) error {
	return x.db.ExportToFile(dir+"/knowledge.gob.gz", true, "")
}

// Load restores the vector index from the given directory.
func (x *Index) Load(dir string) error {
	if err := x.db.ImportFromFile(dir+"/knowledge.gob.gz", ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := x.db.GetCollection(collectionName, x.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	x.collection = col
	return nil
}
