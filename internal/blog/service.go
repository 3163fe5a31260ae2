package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"kairo-backend/internal/utils"
)

var (
	ErrNotFound    = errors.New("post not found")
	ErrSlugExists  = errors.New("slug already exists")
	ErrInvalidSlug = errors.New("invalid slug")
)

type Service struct {
	repo     Repository
	location *time.Location
	now      func() time.Time
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		location: location,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req UpsertRequest) (Post, error) {
	slug := normalizeSlug(req.Slug, req.Title)
	if slug == "" {
		return Post{}, ErrInvalidSlug
	}
	html, err := renderMarkdown(req.Content)
	if err != nil {
		return Post{}, fmt.Errorf("render markdown: %w", err)
	}

	now := s.now().In(s.location)
	post := Post{
		ID:             primitive.NewObjectID().Hex(),
		Slug:           slug,
		Title:          strings.TrimSpace(req.Title),
		Excerpt:        strings.TrimSpace(req.Excerpt),
		Content:        req.Content,
		ContentHTML:    html,
		Category:       strings.TrimSpace(req.Category),
		Tags:           normalizeTags(req.Tags),
		CoverImage:     strings.TrimSpace(req.CoverImage),
		ReadingMinutes: readingMinutes(req.Content),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.IsPublished != nil && *req.IsPublished {
		post.IsPublished = true
		post.PublishedAt = &now
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Post{}, ErrSlugExists
		}
		return Post{}, err
	}
	return post, nil
}

// Update replaces the editable fields. The publication date is set the first
// time a post goes live and kept afterwards, even across unpublishing.
func (s *Service) Update(ctx context.Context, id string, req UpsertRequest) (Post, error) {
	id = strings.TrimSpace(id)
	slug := normalizeSlug(req.Slug, req.Title)
	if slug == "" {
		return Post{}, ErrInvalidSlug
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}

	html, err := renderMarkdown(req.Content)
	if err != nil {
		return Post{}, fmt.Errorf("render markdown: %w", err)
	}

	now := s.now().In(s.location)
	published := current.IsPublished
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	set := bson.M{
		"slug":           slug,
		"title":          strings.TrimSpace(req.Title),
		"excerpt":        strings.TrimSpace(req.Excerpt),
		"content":        req.Content,
		"contentHtml":    html,
		"category":       strings.TrimSpace(req.Category),
		"tags":           normalizeTags(req.Tags),
		"coverImage":     strings.TrimSpace(req.CoverImage),
		"readingMinutes": readingMinutes(req.Content),
		"published":      published,
		"updatedAt":      now,
	}
	if published && current.PublishedAt == nil {
		set["publishedAt"] = now
	}

	updated, err := s.repo.Update(ctx, id, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Post{}, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return Post{}, ErrSlugExists
		}
		return Post{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListPublic(ctx context.Context, filter PublicListFilter) ([]Post, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	return s.repo.ListPublic(ctx, filter)
}

func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	post, err := s.repo.GetPublishedBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return post, nil
}

func (s *Service) ListAdmin(ctx context.Context, filter AdminListFilter, limit, offset int64) ([]Post, int64, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	items, err := s.repo.ListAdmin(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountAdmin(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func normalizeSlug(slug, title string) string {
	raw := strings.TrimSpace(slug)
	if raw == "" {
		raw = strings.TrimSpace(title)
	}
	return utils.Slugify(raw)
}

// normalizeTags lowercases, trims and dedupes while keeping the first
// occurrence order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
