package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// SQLite has a single writer; one connection avoids SQLITE_BUSY under concurrent clicks.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		shortcode TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		redirect_type INTEGER NOT NULL DEFAULT 302,
		tags JSON,
		archived INTEGER NOT NULL DEFAULT 0,
		activates_at DATETIME,
		expires_at DATETIME,
		password_enabled INTEGER NOT NULL DEFAULT 0,
		clicks INTEGER NOT NULL DEFAULT 0,
		last_clicked DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		deleted_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_links_clicks ON links(clicks);

	CREATE TABLE IF NOT EXISTS analytics_day (
		shortcode TEXT NOT NULL,
		day TEXT NOT NULL,
		clicks INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (shortcode, day)
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_day_day ON analytics_day(day);

	CREATE TABLE IF NOT EXISTS analytics_global_day (
		day TEXT PRIMARY KEY,
		clicks INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS analytics_agg (
		shortcode TEXT NOT NULL,
		dimension TEXT NOT NULL,
		value TEXT NOT NULL,
		clicks INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (shortcode, dimension, value)
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_agg_dimension ON analytics_agg(dimension, value);

	CREATE TABLE IF NOT EXISTS analytics_day_agg (
		shortcode TEXT NOT NULL,
		day TEXT NOT NULL,
		dimension TEXT NOT NULL,
		value TEXT NOT NULL,
		clicks INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (shortcode, day, dimension, value)
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_day_agg_range ON analytics_day_agg(dimension, day);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS collection_links (
		collection_id INTEGER NOT NULL,
		shortcode TEXT NOT NULL,
		sort_order INTEGER DEFAULT 0,
		PRIMARY KEY (collection_id, shortcode),
		FOREIGN KEY(collection_id) REFERENCES collections(id) ON DELETE CASCADE,
		FOREIGN KEY(shortcode) REFERENCES links(shortcode) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(query)
	return err
}

const linkColumns = `shortcode, url, description, redirect_type, tags, archived, activates_at, expires_at,
	password_enabled, clicks, last_clicked, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var l domain.Link
	var tagsJSON []byte
	var activatesAt, expiresAt, lastClicked, deletedAt sql.NullTime

	err := row.Scan(
		&l.Shortcode, &l.URL, &l.Description, &l.RedirectType, &tagsJSON, &l.Archived,
		&activatesAt, &expiresAt, &l.PasswordEnabled, &l.Clicks, &lastClicked,
		&l.CreatedAt, &l.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	l.ActivatesAt = timePtr(activatesAt)
	l.ExpiresAt = timePtr(expiresAt)
	l.LastClicked = timePtr(lastClicked)
	l.DeletedAt = timePtr(deletedAt)
	_ = json.Unmarshal(tagsJSON, &l.Tags)
	return &l, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (shortcode, url, description, redirect_type, tags, archived,
			  activates_at, expires_at, password_enabled, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT (shortcode) DO NOTHING`

	tagsJSON, err := json.Marshal(link.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query,
		link.Shortcode, link.URL, link.Description, link.RedirectType, tagsJSON, link.Archived,
		nullTime(link.ActivatesAt), nullTime(link.ExpiresAt), link.PasswordEnabled,
		link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrShortcodeTaken
	}
	return nil
}

func (r *SQLiteRepository) GetByShortcode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE shortcode = ? AND deleted_at IS NULL`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return link, err
}

func (r *SQLiteRepository) Update(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET url = ?, description = ?, redirect_type = ?, tags = ?, archived = ?,
			  activates_at = ?, expires_at = ?, password_enabled = ?, updated_at = ?
			  WHERE shortcode = ? AND deleted_at IS NULL`

	tagsJSON, err := json.Marshal(link.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query,
		link.URL, link.Description, link.RedirectType, tagsJSON, link.Archived,
		nullTime(link.ActivatesAt), nullTime(link.ExpiresAt), link.PasswordEnabled, link.UpdatedAt,
		link.Shortcode,
	)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrLinkNotFound)
}

func (r *SQLiteRepository) Delete(ctx context.Context, code string) error {
	query := `UPDATE links SET deleted_at = ? WHERE shortcode = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), code)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrLinkNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// linkFilters appends the shared search/tag/domain predicates.
func linkFilters(query string, args []interface{}, filters map[string]interface{}) (string, []interface{}) {
	if search, ok := filters["search"].(string); ok && search != "" {
		query += " AND (shortcode LIKE ? OR description LIKE ? OR url LIKE ?)"
		args = append(args, "%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if tag, ok := filters["tag"].(string); ok && tag != "" {
		query += " AND EXISTS (SELECT 1 FROM json_each(links.tags) WHERE value = ?)"
		args = append(args, tag)
	}
	if domainFilter, ok := filters["domain"].(string); ok && domainFilter != "" {
		query += " AND url LIKE ?"
		args = append(args, "%"+domainFilter+"%")
	}
	if archived, ok := filters["archived"].(bool); ok {
		query += " AND archived = ?"
		args = append(args, archived)
	}
	return query, args
}

func (r *SQLiteRepository) queryLinks(ctx context.Context, query string, args ...interface{}) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Link, error) {
	query, args := linkFilters(`SELECT `+linkColumns+` FROM links WHERE deleted_at IS NULL`, nil, filters)
	query += " ORDER BY created_at DESC, shortcode ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryLinks(ctx, query, args...)
}

func (r *SQLiteRepository) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	query, args := linkFilters(`SELECT COUNT(*) FROM links WHERE deleted_at IS NULL`, nil, filters)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// TopLinks ranks live links by their own click counter.
func (r *SQLiteRepository) TopLinks(ctx context.Context, limit int, filters map[string]interface{}) ([]domain.Link, error) {
	query, args := linkFilters(`SELECT `+linkColumns+` FROM links WHERE deleted_at IS NULL`, nil, filters)
	query += " ORDER BY clicks DESC, shortcode ASC LIMIT ?"
	args = append(args, limit)
	return r.queryLinks(ctx, query, args...)
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	return r.queryLinks(ctx, `SELECT `+linkColumns+` FROM links ORDER BY created_at ASC, shortcode ASC`)
}

// Ensure interface compliance
var (
	_ ports.LinkRepository       = (*SQLiteRepository)(nil)
	_ ports.AnalyticsRepository  = (*SQLiteRepository)(nil)
	_ ports.CollectionRepository = (*SQLiteRepository)(nil)
)
