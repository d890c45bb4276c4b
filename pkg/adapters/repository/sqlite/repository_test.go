package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := NewSQLiteRepository("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func createLink(t *testing.T, repo *SQLiteRepository, code string, mutate ...func(*domain.Link)) *domain.Link {
	t.Helper()
	now := time.Now().UTC()
	link := &domain.Link{
		Shortcode:    code,
		URL:          "https://example.org/" + code,
		RedirectType: domain.DefaultRedirectType,
		Tags:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, m := range mutate {
		m(link)
	}
	require.NoError(t, repo.Create(context.Background(), link))
	return link
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	createLink(t, repo, "demo", func(l *domain.Link) {
		l.Description = "Demo"
		l.Tags = []string{"a", "b"}
		l.RedirectType = 301
		l.ExpiresAt = &expires
	})

	got, err := repo.GetByShortcode(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://example.org/demo", got.URL)
	assert.Equal(t, "Demo", got.Description)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, 301, got.RedirectType)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, expires, *got.ExpiresAt, time.Second)
	assert.Nil(t, got.ActivatesAt)
	assert.Zero(t, got.Clicks)

	missing, err := repo.GetByShortcode(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateDuplicateShortcode(t *testing.T) {
	repo := newTestRepo(t)
	createLink(t, repo, "demo")

	err := repo.Create(context.Background(), &domain.Link{Shortcode: "demo", URL: "https://other.example"})
	assert.ErrorIs(t, err, domain.ErrShortcodeTaken)
}

func TestUpdateAndSoftDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	link := createLink(t, repo, "demo")

	link.URL = "https://example.org/new"
	link.Archived = true
	require.NoError(t, repo.Update(ctx, link))

	got, err := repo.GetByShortcode(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/new", got.URL)
	assert.True(t, got.Archived)

	require.NoError(t, repo.Delete(ctx, "demo"))
	got, err = repo.GetByShortcode(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, repo.Delete(ctx, "demo"), domain.ErrLinkNotFound)
	assert.ErrorIs(t, repo.Update(ctx, link), domain.ErrLinkNotFound)

	dump, err := repo.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, dump, 1)
	assert.NotNil(t, dump[0].DeletedAt, "dump keeps deleted links")
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createLink(t, repo, "go", func(l *domain.Link) { l.URL = "https://go.dev"; l.Tags = []string{"lang"} })
	createLink(t, repo, "rust", func(l *domain.Link) { l.URL = "https://rust-lang.org"; l.Tags = []string{"lang"} })
	createLink(t, repo, "news", func(l *domain.Link) { l.URL = "https://news.ycombinator.com" })

	all, err := repo.List(ctx, 10, 0, map[string]interface{}{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tagged, err := repo.List(ctx, 10, 0, map[string]interface{}{"tag": "lang"})
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	count, err := repo.Count(ctx, map[string]interface{}{"search": "rust"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	byDomain, err := repo.TopLinks(ctx, 10, map[string]interface{}{"domain": "go.dev"})
	require.NoError(t, err)
	require.Len(t, byDomain, 1)
	assert.Equal(t, "go", byDomain[0].Shortcode)
}

func TestTopLinksOrdersByClicks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createLink(t, repo, "a")
	createLink(t, repo, "b")
	createLink(t, repo, "c")

	for code, n := range map[string]int{"a": 1, "b": 3, "c": 2} {
		for i := 0; i < n; i++ {
			require.NoError(t, repo.ApplyClick(ctx, code, time.Now(), nil))
		}
	}

	top, err := repo.TopLinks(ctx, 2, nil)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Shortcode)
	assert.Equal(t, int64(3), top[0].Clicks)
	assert.Equal(t, "c", top[1].Shortcode)
	assert.NotNil(t, top[0].LastClicked)
}
