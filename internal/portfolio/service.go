package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"kairo-backend/internal/utils"
)

var (
	ErrNotFound    = errors.New("project not found")
	ErrSlugExists  = errors.New("slug already exists")
	ErrInvalidSlug = errors.New("invalid slug")
)

type Service struct {
	repo     Repository
	location *time.Location
	now      func() time.Time
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{repo: repo, location: location, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req UpsertRequest) (Project, error) {
	slug := normalizeSlug(req.Slug, req.Title)
	if slug == "" {
		return Project{}, ErrInvalidSlug
	}

	now := s.now().In(s.location)
	p := fromRequest(req)
	p.ID = primitive.NewObjectID().Hex()
	p.Slug = slug
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Project{}, ErrSlugExists
		}
		return Project{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpsertRequest) (Project, error) {
	slug := normalizeSlug(req.Slug, req.Title)
	if slug == "" {
		return Project{}, ErrInvalidSlug
	}

	p := fromRequest(req)
	set := bson.M{
		"slug":         slug,
		"title":        p.Title,
		"category":     p.Category,
		"clientName":   p.ClientName,
		"summary":      p.Summary,
		"problem":      p.Problem,
		"solution":     p.Solution,
		"result":       p.Result,
		"technologies": p.Technologies,
		"imageUrl":     p.ImageURL,
		"projectUrl":   p.ProjectURL,
		"published":    p.IsPublished,
		"featured":     p.IsFeatured,
		"order":        p.SortOrder,
		"updatedAt":    s.now().In(s.location),
	}

	updated, err := s.repo.Update(ctx, strings.TrimSpace(id), set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Project{}, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return Project{}, ErrSlugExists
		}
		return Project{}, err
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

func (s *Service) ListPublic(ctx context.Context, filter ListFilter) ([]Project, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.PublishedOnly = true
	return s.repo.List(ctx, filter, 0, 0)
}

func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Project, error) {
	p, err := s.repo.GetPublishedBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, limit, offset int64) ([]Project, int64, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func fromRequest(req UpsertRequest) Project {
	p := Project{
		Title:        strings.TrimSpace(req.Title),
		Category:     strings.TrimSpace(req.Category),
		ClientName:   strings.TrimSpace(req.ClientName),
		Summary:      strings.TrimSpace(req.Summary),
		Problem:      strings.TrimSpace(req.Problem),
		Solution:     strings.TrimSpace(req.Solution),
		Result:       strings.TrimSpace(req.Result),
		Technologies: make([]string, 0, len(req.Technologies)),
		ImageURL:     strings.TrimSpace(req.ImageURL),
		ProjectURL:   strings.TrimSpace(req.ProjectURL),
	}
	for _, t := range req.Technologies {
		if t = strings.TrimSpace(t); t != "" {
			p.Technologies = append(p.Technologies, t)
		}
	}
	if req.IsPublished != nil {
		p.IsPublished = *req.IsPublished
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
	}
	if req.SortOrder != nil {
		p.SortOrder = *req.SortOrder
	}
	return p
}

func normalizeSlug(slug, title string) string {
	raw := strings.TrimSpace(slug)
	if raw == "" {
		raw = strings.TrimSpace(title)
	}
	return utils.Slugify(raw)
}
