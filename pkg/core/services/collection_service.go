package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

type CollectionService struct {
	repo  ports.CollectionRepository
	links ports.LinkRepository
}

func NewCollectionService(repo ports.CollectionRepository, links ports.LinkRepository) *CollectionService {
	return &CollectionService{repo: repo, links: links}
}

func (s *CollectionService) CreateCollection(ctx context.Context, title, slug, description string) (*domain.Collection, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || !validShortcode(slug) {
		return nil, fmt.Errorf("%w: slug is required and may only contain letters, digits, '-' and '_'", domain.ErrInvalidLink)
	}

	now := time.Now().UTC()
	collection := &domain.Collection{
		Title:       title,
		Slug:        slug,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func (s *CollectionService) GetCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	collection, err := s.repo.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, domain.ErrCollectionNotFound
	}
	return s.withLinks(ctx, collection)
}

// GetPublicCollection serves the profile page; only currently reachable links are listed.
func (s *CollectionService) GetPublicCollection(ctx context.Context, slug string) (*domain.Collection, error) {
	collection, err := s.repo.GetCollectionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, domain.ErrCollectionNotFound
	}
	if _, err := s.withLinks(ctx, collection); err != nil {
		return nil, err
	}

	now := time.Now()
	visible := collection.Links[:0]
	for _, l := range collection.Links {
		if l.Availability(now) == nil {
			visible = append(visible, l)
		}
	}
	collection.Links = visible
	return collection, nil
}

func (s *CollectionService) withLinks(ctx context.Context, collection *domain.Collection) (*domain.Collection, error) {
	links, err := s.repo.GetCollectionLinks(ctx, collection.ID)
	if err != nil {
		return nil, err
	}
	collection.Links = links
	return collection, nil
}

func (s *CollectionService) UpdateCollection(ctx context.Context, id int64, title, slug, description string) (*domain.Collection, error) {
	collection, err := s.repo.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, domain.ErrCollectionNotFound
	}

	if slug = strings.TrimSpace(slug); slug != "" {
		if !validShortcode(slug) {
			return nil, fmt.Errorf("%w: slug may only contain letters, digits, '-' and '_'", domain.ErrInvalidLink)
		}
		collection.Slug = slug
	}
	collection.Title = title
	collection.Description = description
	collection.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCollection(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func (s *CollectionService) DeleteCollection(ctx context.Context, id int64) error {
	return s.repo.DeleteCollection(ctx, id)
}

func (s *CollectionService) ListCollections(ctx context.Context, page, limit int, search string) ([]domain.Collection, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	collections, err := s.repo.ListCollections(ctx, limit, offset, search)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountCollections(ctx, search)
	if err != nil {
		return nil, 0, err
	}
	return collections, total, nil
}

func (s *CollectionService) AddLink(ctx context.Context, collectionID int64, shortcode string) error {
	collection, err := s.repo.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection == nil {
		return domain.ErrCollectionNotFound
	}
	link, err := s.links.GetByShortcode(ctx, shortcode)
	if err != nil {
		return err
	}
	if link == nil {
		return domain.ErrLinkNotFound
	}
	return s.repo.AddLinkToCollection(ctx, collectionID, shortcode)
}

func (s *CollectionService) RemoveLink(ctx context.Context, collectionID int64, shortcode string) error {
	return s.repo.RemoveLinkFromCollection(ctx, collectionID, shortcode)
}

func (s *CollectionService) ReorderLinks(ctx context.Context, collectionID int64, shortcodes []string) error {
	for i, code := range shortcodes {
		// New order is index + 1
		if err := s.repo.UpdateLinkOrder(ctx, collectionID, code, i+1); err != nil {
			return err
		}
	}
	return nil
}
