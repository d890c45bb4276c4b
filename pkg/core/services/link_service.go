package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

type LinkService struct {
	repo ports.LinkRepository
	now  func() time.Time
}

func NewLinkService(repo ports.LinkRepository) *LinkService {
	return &LinkService{repo: repo, now: time.Now}
}

func (s *LinkService) Shorten(ctx context.Context, in ports.LinkInput) (*domain.Link, error) {
	if err := validateLinkInput(&in); err != nil {
		return nil, err
	}

	custom := in.Shortcode != ""
	if custom {
		if !validShortcode(in.Shortcode) {
			return nil, fmt.Errorf("%w: shortcode may only contain letters, digits, '-' and '_'", domain.ErrInvalidLink)
		}
		if reservedShortcodes[strings.ToLower(in.Shortcode)] {
			return nil, fmt.Errorf("%w: %q is reserved", domain.ErrShortcodeTaken, in.Shortcode)
		}
	}

	now := s.now().UTC()
	link := &domain.Link{
		Shortcode:       in.Shortcode,
		URL:             in.URL,
		Description:     in.Description,
		RedirectType:    in.RedirectType,
		Tags:            in.Tags,
		Archived:        in.Archived,
		ActivatesAt:     in.ActivatesAt,
		ExpiresAt:       in.ExpiresAt,
		PasswordEnabled: in.PasswordEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if link.Tags == nil {
		link.Tags = []string{}
	}

	if custom {
		if err := s.repo.Create(ctx, link); err != nil {
			return nil, err
		}
		return link, nil
	}

	for attempt := 0; ; attempt++ {
		code, err := generateShortCode(6)
		if err != nil {
			return nil, err
		}
		link.Shortcode = code
		err = s.repo.Create(ctx, link)
		if errors.Is(err, domain.ErrShortcodeTaken) && attempt < 4 {
			continue
		}
		if err != nil {
			return nil, err
		}
		return link, nil
	}
}

// Resolve returns a link that may be followed right now.
func (s *LinkService) Resolve(ctx context.Context, code string) (*domain.Link, error) {
	link, err := s.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := link.Availability(s.now()); err != nil {
		return link, err
	}
	return link, nil
}

func (s *LinkService) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	link, err := s.repo.GetByShortcode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// UpdateLink replaces the editable fields. The shortcode never changes.
func (s *LinkService) UpdateLink(ctx context.Context, code string, in ports.LinkInput) (*domain.Link, error) {
	link, err := s.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}
	if in.URL == "" {
		in.URL = link.URL
	}
	if err := validateLinkInput(&in); err != nil {
		return nil, err
	}

	link.URL = in.URL
	link.Description = in.Description
	link.RedirectType = in.RedirectType
	if in.Tags != nil {
		link.Tags = in.Tags
	}
	link.Archived = in.Archived
	link.ActivatesAt = in.ActivatesAt
	link.ExpiresAt = in.ExpiresAt
	link.PasswordEnabled = in.PasswordEnabled
	link.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, code)
}

func (s *LinkService) ListLinks(ctx context.Context, page, limit int, search string, tag string) ([]domain.Link, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	filters := map[string]interface{}{
		"search": search,
		"tag":    tag,
	}

	links, err := s.repo.List(ctx, limit, offset, filters)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	return links, count, nil
}

func (s *LinkService) GetDashboard(ctx context.Context, limit int, search, tag, domainFilter string) ([]domain.Link, error) {
	if limit < 1 {
		limit = 10
	}
	filters := map[string]interface{}{
		"search": search,
		"tag":    tag,
		"domain": domainFilter,
	}
	return s.repo.TopLinks(ctx, limit, filters)
}

func validateLinkInput(in *ports.LinkInput) error {
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		return fmt.Errorf("%w: url is required", domain.ErrInvalidLink)
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", domain.ErrInvalidLink)
	}
	if in.RedirectType == 0 {
		in.RedirectType = domain.DefaultRedirectType
	}
	if !domain.ValidRedirectType(in.RedirectType) {
		return fmt.Errorf("%w: redirect type must be 301, 302, 307 or 308", domain.ErrInvalidLink)
	}
	if in.ActivatesAt != nil && in.ExpiresAt != nil && !in.ExpiresAt.After(*in.ActivatesAt) {
		return fmt.Errorf("%w: expiry must be after activation", domain.ErrInvalidLink)
	}
	return nil
}

func validShortcode(code string) bool {
	if len(code) > 64 {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(charset, c) && c != '-' && c != '_' {
			return false
		}
	}
	return true
}

// reservedShortcodes would be shadowed by fixed routes.
var reservedShortcodes = map[string]bool{
	"api": true, "auth": true, "healthz": true, "metrics": true, "open": true, "u": true,
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
