package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

func (r *SQLiteRepository) CreateCollection(ctx context.Context, collection *domain.Collection) error {
	query := `INSERT INTO collections (slug, title, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, collection.Slug, collection.Title, collection.Description, collection.CreatedAt, collection.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	collection.ID = id
	return nil
}

func (r *SQLiteRepository) getCollection(ctx context.Context, where string, arg interface{}) (*domain.Collection, error) {
	query := `SELECT id, slug, title, description, created_at, updated_at FROM collections WHERE ` + where

	var c domain.Collection
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Slug, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) GetCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	return r.getCollection(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetCollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	return r.getCollection(ctx, "slug = ?", slug)
}

func (r *SQLiteRepository) UpdateCollection(ctx context.Context, collection *domain.Collection) error {
	query := `UPDATE collections SET slug = ?, title = ?, description = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, collection.Slug, collection.Title, collection.Description, collection.UpdatedAt, collection.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return err
	}
	return requireRow(res, domain.ErrCollectionNotFound)
}

// DeleteCollection removes the collection and its memberships in one transaction.
func (r *SQLiteRepository) DeleteCollection(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_links WHERE collection_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, domain.ErrCollectionNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

func collectionSearch(query, search string) (string, []interface{}) {
	if search == "" {
		return query, nil
	}
	return query + " WHERE title LIKE ? OR slug LIKE ?", []interface{}{"%" + search + "%", "%" + search + "%"}
}

func (r *SQLiteRepository) ListCollections(ctx context.Context, limit, offset int, search string) ([]domain.Collection, error) {
	query, args := collectionSearch(`SELECT id, slug, title, description, created_at, updated_at FROM collections`, search)
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := []domain.Collection{}
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Slug, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (r *SQLiteRepository) CountCollections(ctx context.Context, search string) (int64, error) {
	query, args := collectionSearch(`SELECT COUNT(*) FROM collections`, search)
	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// AddLinkToCollection appends the link after the current last entry.
func (r *SQLiteRepository) AddLinkToCollection(ctx context.Context, collectionID int64, shortcode string) error {
	query := `INSERT INTO collection_links (collection_id, shortcode, sort_order)
			  SELECT ?, ?, COALESCE(MAX(sort_order), 0) + 1 FROM collection_links WHERE collection_id = ?
			  ON CONFLICT (collection_id, shortcode) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, collectionID, shortcode, collectionID)
	return err
}

func (r *SQLiteRepository) RemoveLinkFromCollection(ctx context.Context, collectionID int64, shortcode string) error {
	query := `DELETE FROM collection_links WHERE collection_id = ? AND shortcode = ?`
	_, err := r.db.ExecContext(ctx, query, collectionID, shortcode)
	return err
}

func (r *SQLiteRepository) UpdateLinkOrder(ctx context.Context, collectionID int64, shortcode string, newOrder int) error {
	query := `UPDATE collection_links SET sort_order = ? WHERE collection_id = ? AND shortcode = ?`
	_, err := r.db.ExecContext(ctx, query, newOrder, collectionID, shortcode)
	return err
}

// GetCollectionLinks returns live, unarchived links in display order.
func (r *SQLiteRepository) GetCollectionLinks(ctx context.Context, collectionID int64) ([]domain.Link, error) {
	query := `SELECT l.shortcode, l.url, l.description, l.redirect_type, l.tags, l.archived, l.activates_at,
			  l.expires_at, l.password_enabled, l.clicks, l.last_clicked, l.created_at, l.updated_at, l.deleted_at
			  FROM links l
			  JOIN collection_links cl ON l.shortcode = cl.shortcode
			  WHERE cl.collection_id = ? AND l.deleted_at IS NULL AND l.archived = 0
			  ORDER BY cl.sort_order ASC, l.shortcode ASC`
	return r.queryLinks(ctx, query, collectionID)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
