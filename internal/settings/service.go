package settings

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotAnObject = errors.New("settings root must be an object")

type Service struct {
	repo     Repository
	location *time.Location
	now      func() time.Time

	// mu serializes read-modify-write cycles of this instance.
	mu sync.Mutex
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{repo: repo, location: location, now: time.Now}
}

// Get returns the saved settings, or the defaults when none were saved.
func (s *Service) Get(ctx context.Context) (Value, error) {
	v, found, err := s.repo.Load(ctx)
	if err != nil {
		return Value{}, err
	}
	if !found {
		return Default(), nil
	}
	return v, nil
}

func (s *Service) Form(ctx context.Context) ([]FormField, error) {
	v, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return Render(v), nil
}

func (s *Service) Replace(ctx context.Context, v Value) (Value, error) {
	if v.Kind != KindObject {
		return Value{}, ErrNotAnObject
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Save(ctx, v, s.now().In(s.location)); err != nil {
		return Value{}, err
	}
	return v, nil
}

// SetPath updates a single node. The new value may change the node's kind.
func (s *Service) SetPath(ctx context.Context, path string, nv Value) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx)
	if err != nil {
		return Value{}, err
	}
	updated, err := current.Set(path, nv)
	if err != nil {
		return Value{}, err
	}
	if err := s.repo.Save(ctx, updated, s.now().In(s.location)); err != nil {
		return Value{}, err
	}
	return updated, nil
}
