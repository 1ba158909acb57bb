package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearscope-ai/clearscope/internal/db"
)

// Store provides SQLite persistence for knowledge items. It is the source of
// truth for item content; the vector index holds only embeddings.
type Store struct {
	db *db.DB
}

// NewStore creates a new knowledge item store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// HashContent computes the content hash for an item body.
func HashContent(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:])
}

// Upsert inserts or updates an item. The content hash is recomputed from the
// body and the item version increments on every write, so a concurrent search
// can tell which embedding generation it is reading.
func (s *Store) Upsert(ctx context.Context, item *Item) error {
	if !ValidContentTypes[item.ContentType] {
		return fmt.Errorf("invalid content type %q", item.ContentType)
	}
	if item.ContentID == "" {
		return fmt.Errorf("content_id is required")
	}
	item.ContentHash = HashContent(item.Body)

	metadata := "{}"
	if len(item.Metadata) > 0 {
		data, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge_items (content_type, content_id, industry, title, body, metadata, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_type, content_id) DO UPDATE SET
			industry = excluded.industry,
			title = excluded.title,
			body = excluded.body,
			metadata = excluded.metadata,
			content_hash = excluded.content_hash,
			version = version + 1,
			updated_at = excluded.updated_at`,
		string(item.ContentType), item.ContentID, item.Industry, item.Title,
		item.Body, metadata, item.ContentHash,
		time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("upserting knowledge item: %w", err)
	}

	return s.db.QueryRowContext(ctx, `
		SELECT version FROM knowledge_items WHERE content_type = ? AND content_id = ?`,
		string(item.ContentType), item.ContentID,
	).Scan(&item.Version)
}

// MarkEmbedded records that the item's current content has been embedded.
func (s *Store) MarkEmbedded(ctx context.Context, contentType ContentType, contentID, contentHash string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE knowledge_items SET embedded_hash = ?, embedded_at = ?
		WHERE content_type = ? AND content_id = ?`,
		contentHash, now.Format(time.DateTime), string(contentType), contentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no knowledge item %s/%s", contentType, contentID)
	}
	return nil
}

// Get retrieves one item by its unique (content_type, content_id) pair.
func (s *Store) Get(ctx context.Context, contentType ContentType, contentID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT content_type, content_id, industry, title, body, metadata, content_hash, embedded_hash, embedded_at, version
		FROM knowledge_items WHERE content_type = ? AND content_id = ?`,
		string(contentType), contentID)
	return scanItem(row)
}

// List returns all items, optionally filtered to one content type.
func (s *Store) List(ctx context.Context, contentType ContentType) ([]Item, error) {
	query := `SELECT content_type, content_id, industry, title, body, metadata, content_hash, embedded_hash, embedded_at, version
		FROM knowledge_items`
	var args []interface{}
	if contentType != "" {
		query += " WHERE content_type = ?"
		args = append(args, string(contentType))
	}
	query += " ORDER BY content_type, content_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListStale returns items whose content changed after their last embedding,
// including items never embedded.
func (s *Store) ListStale(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_type, content_id, industry, title, body, metadata, content_hash, embedded_hash, embedded_at, version
		FROM knowledge_items
		WHERE embedded_hash = '' OR embedded_hash != content_hash
		ORDER BY content_type, content_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(s scanner) (*Item, error) {
	var item Item
	var contentType, metadata string
	var embeddedAt sql.NullString

	err := s.Scan(&contentType, &item.ContentID, &item.Industry, &item.Title,
		&item.Body, &metadata, &item.ContentHash, &item.EmbeddedHash,
		&embeddedAt, &item.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	item.ContentType = ContentType(contentType)
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	if embeddedAt.Valid {
		t, err := time.Parse(time.DateTime, embeddedAt.String)
		if err == nil {
			item.EmbeddedAt = &t
		}
	}

	return &item, nil
}
