package contact

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"kairo-backend/internal/notifications"
)

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("contact message not found")
)

type Notifier interface {
	ContactReceived(ctx context.Context, c notifications.ContactNotice) error
}

type Service struct {
	repo     Repository
	location *time.Location
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, location *time.Location, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		location: location,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Message, error) {
	now := s.now().In(s.location)
	m := Message{
		ID:        primitive.NewObjectID().Hex(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		Subject:   strings.TrimSpace(req.Subject),
		Body:      strings.TrimSpace(req.Message),
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, limit, offset int64) ([]Message, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}

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

func (s *Service) GetAdminByID(ctx context.Context, id string) (Message, error) {
	m, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	return m, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Message, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !IsValidStatus(status) {
		return Message{}, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, strings.TrimSpace(id), status, s.now().In(s.location))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	return updated, nil
}

// Notify tells the team a message arrived. Failures are reported, never
// retried.
func (s *Service) Notify(ctx context.Context, m Message) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.ContactReceived(ctx, notifications.ContactNotice{
		ID:      m.ID,
		Name:    m.Name,
		Email:   m.Email,
		Phone:   m.Phone,
		Subject: m.Subject,
		Message: m.Body,
	})
}
