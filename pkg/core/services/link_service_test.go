package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

func TestShortenGeneratesCode(t *testing.T) {
	f := newFixture(t, jan3)

	link, err := f.links.Shorten(context.Background(), ports.LinkInput{URL: " https://go.dev "})
	require.NoError(t, err)
	assert.Len(t, link.Shortcode, 6)
	assert.True(t, validShortcode(link.Shortcode))
	assert.Equal(t, "https://go.dev", link.URL)
	assert.Equal(t, domain.DefaultRedirectType, link.RedirectType)
	assert.Equal(t, []string{}, link.Tags)
	assert.Equal(t, jan3, link.CreatedAt)
}

func TestShortenValidation(t *testing.T) {
	f := newFixture(t, jan3)
	ctx := context.Background()
	later := jan3.Add(time.Hour)

	tests := []struct {
		name string
		in   ports.LinkInput
		want error
	}{
		{"missing url", ports.LinkInput{}, domain.ErrInvalidLink},
		{"relative url", ports.LinkInput{URL: "/path"}, domain.ErrInvalidLink},
		{"ftp url", ports.LinkInput{URL: "ftp://example.org"}, domain.ErrInvalidLink},
		{"bad redirect", ports.LinkInput{URL: "https://example.org", RedirectType: 200}, domain.ErrInvalidLink},
		{"bad shortcode", ports.LinkInput{URL: "https://example.org", Shortcode: "a/b"}, domain.ErrInvalidLink},
		{"reserved shortcode", ports.LinkInput{URL: "https://example.org", Shortcode: "Metrics"}, domain.ErrShortcodeTaken},
		{"expiry before activation", ports.LinkInput{URL: "https://example.org", ActivatesAt: &later, ExpiresAt: &jan3}, domain.ErrInvalidLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.links.Shorten(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestShortenCustomCodeTaken(t *testing.T) {
	f := newFixture(t, jan3)
	f.shorten(t, "demo")

	_, err := f.links.Shorten(context.Background(), ports.LinkInput{Shortcode: "demo", URL: "https://example.org"})
	assert.ErrorIs(t, err, domain.ErrShortcodeTaken)
}

func TestResolve(t *testing.T) {
	f := newFixture(t, jan3)
	ctx := context.Background()
	past := jan3.Add(-time.Hour)

	f.shorten(t, "live")
	_, err := f.links.Shorten(ctx, ports.LinkInput{Shortcode: "expired", URL: "https://example.org", ExpiresAt: &past})
	require.NoError(t, err)
	_, err = f.links.Shorten(ctx, ports.LinkInput{Shortcode: "secret", URL: "https://example.org", PasswordEnabled: true})
	require.NoError(t, err)

	link, err := f.links.Resolve(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/live", link.URL)

	_, err = f.links.Resolve(ctx, "expired")
	assert.ErrorIs(t, err, domain.ErrLinkInactive)
	_, err = f.links.Resolve(ctx, "secret")
	assert.ErrorIs(t, err, domain.ErrPasswordProtected)
	_, err = f.links.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestUpdateAndDeleteLink(t *testing.T) {
	f := newFixture(t, jan3)
	ctx := context.Background()
	f.shorten(t, "demo")

	updated, err := f.links.UpdateLink(ctx, "demo", ports.LinkInput{Description: "new", Tags: []string{"x"}, RedirectType: 301})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/demo", updated.URL, "empty url keeps the old destination")
	assert.Equal(t, "new", updated.Description)
	assert.Equal(t, 301, updated.RedirectType)

	got, err := f.links.GetLink(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Tags)

	require.NoError(t, f.links.DeleteLink(ctx, "demo"))
	_, err = f.links.GetLink(ctx, "demo")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	_, err = f.links.UpdateLink(ctx, "demo", ports.LinkInput{})
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestListLinksAndDashboard(t *testing.T) {
	f := newFixture(t, jan3)
	ctx := context.Background()
	for _, code := range []string{"a", "b", "c"} {
		f.shorten(t, code)
	}
	f.click(t, "b", "/b", nil)

	links, total, err := f.links.ListLinks(ctx, 2, 2, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, links, 1)

	top, err := f.links.GetDashboard(ctx, 0, "", "", "")
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Shortcode)
}
