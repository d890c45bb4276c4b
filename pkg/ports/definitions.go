package ports

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByShortcode(ctx context.Context, code string) (*domain.Link, error)
	Update(ctx context.Context, link *domain.Link) error
	Delete(ctx context.Context, code string) error // Soft delete
	List(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Link, error)
	Count(ctx context.Context, filters map[string]interface{}) (int64, error)
	TopLinks(ctx context.Context, limit int, filters map[string]interface{}) ([]domain.Link, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
}

// AnalyticsRepository owns the aggregate tables.
type AnalyticsRepository interface {
	// ApplyClick bumps the link's clicks and last_clicked and runs every
	// statement in a single transaction. Nothing is written on error.
	ApplyClick(ctx context.Context, shortcode string, clickedAt time.Time, stmts []domain.Statement) error

	LinkClicks(ctx context.Context, shortcode string) (int64, error)
	Counter(ctx context.Context, name string) (int64, error)
	// DailyCounts reads day rows in [fromDay, toDay]; an empty shortcode reads the global rollup.
	DailyCounts(ctx context.Context, shortcode, fromDay, toDay string) ([]domain.DayCount, error)
	TopShortcodes(ctx context.Context, fromDay, toDay string, limit int) ([]string, error)
	// DimensionTotals ranks values by clicks. Empty day bounds read the all-time table.
	DimensionTotals(ctx context.Context, shortcode string, dim domain.Dimension, fromDay, toDay string, limit int) ([]domain.BreakdownItem, error)
}

// CollectionRepository stores the public link collections.
type CollectionRepository interface {
	CreateCollection(ctx context.Context, collection *domain.Collection) error
	GetCollection(ctx context.Context, id int64) (*domain.Collection, error)
	GetCollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error)
	UpdateCollection(ctx context.Context, collection *domain.Collection) error
	DeleteCollection(ctx context.Context, id int64) error
	ListCollections(ctx context.Context, limit, offset int, search string) ([]domain.Collection, error)
	CountCollections(ctx context.Context, search string) (int64, error)
	AddLinkToCollection(ctx context.Context, collectionID int64, shortcode string) error
	RemoveLinkFromCollection(ctx context.Context, collectionID int64, shortcode string) error
	UpdateLinkOrder(ctx context.Context, collectionID int64, shortcode string, newOrder int) error
	GetCollectionLinks(ctx context.Context, collectionID int64) ([]domain.Link, error)
}

// CollectionService defines business logic for collections
type CollectionService interface {
	CreateCollection(ctx context.Context, title, slug, description string) (*domain.Collection, error)
	GetCollection(ctx context.Context, id int64) (*domain.Collection, error)
	GetPublicCollection(ctx context.Context, slug string) (*domain.Collection, error)
	UpdateCollection(ctx context.Context, id int64, title, slug, description string) (*domain.Collection, error)
	DeleteCollection(ctx context.Context, id int64) error
	ListCollections(ctx context.Context, page, limit int, search string) ([]domain.Collection, int64, error)
	AddLink(ctx context.Context, collectionID int64, shortcode string) error
	RemoveLink(ctx context.Context, collectionID int64, shortcode string) error
	ReorderLinks(ctx context.Context, collectionID int64, shortcodes []string) error
}

// LinkInput carries the editable fields of a link.
type LinkInput struct {
	Shortcode       string     `json:"shortcode,omitempty"`
	URL             string     `json:"url"`
	Description     string     `json:"description"`
	RedirectType    int        `json:"redirect_type,omitempty"`
	Tags            []string   `json:"tags"`
	Archived        bool       `json:"archived"`
	ActivatesAt     *time.Time `json:"activates_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	PasswordEnabled bool       `json:"password_enabled"`
}

// LinkService defines the business logic operations
type LinkService interface {
	Shorten(ctx context.Context, in LinkInput) (*domain.Link, error)
	Resolve(ctx context.Context, code string) (*domain.Link, error)
	GetLink(ctx context.Context, code string) (*domain.Link, error)
	UpdateLink(ctx context.Context, code string, in LinkInput) (*domain.Link, error)
	DeleteLink(ctx context.Context, code string) error
	ListLinks(ctx context.Context, page, limit int, search string, tag string) ([]domain.Link, int64, error)
	GetDashboard(ctx context.Context, limit int, search, tag, domainFilter string) ([]domain.Link, error)
}

// AnalyticsService records clicks and answers the dashboard queries.
type AnalyticsService interface {
	// PrepareClick captures everything needed from r so that RecordPrepared
	// can run after the response has been written.
	PrepareClick(r *http.Request, shortcode, url string) *Click
	RecordPrepared(ctx context.Context, click *Click)
	RecordClick(ctx context.Context, r *http.Request, shortcode, url string)

	GetOverview(ctx context.Context, shortcode string) (*domain.Overview, error)
	GetTimeseries(ctx context.Context, shortcode, from, to string) (*domain.Timeseries, error)
	GetTimeseriesForTopLinks(ctx context.Context, from, to string, limit int) (*domain.MultiSeries, error)
	GetBreakdown(ctx context.Context, shortcode, dimension string, limit int, from, to string) (*domain.Breakdown, error)
	ExportAnalytics(ctx context.Context, shortcode, from, to, format string) (*domain.Export, error)
	EncodeExport(w io.Writer, export *domain.Export, format string) error
}

// Click is a click whose statements have been built but not yet written.
type Click struct {
	Shortcode  string
	At         time.Time
	Statements []domain.Statement
}
