package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"kairo-backend/internal/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("username or email already exists")
	ErrLastAdmin          = errors.New("cannot delete the last admin")
)

type Service struct {
	repo     Repository
	location *time.Location
	now      func() time.Time
	// dummyHash keeps the unknown-user path as slow as a wrong password.
	dummyHash string
}

func NewService(repo Repository, location *time.Location) *Service {
	dummy, _ := auth.HashPassword("kairo-timing-equalizer")
	return &Service{
		repo:      repo,
		location:  location,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// NormalizeIdentity trims both fields and lowercases emails, including a
// username that is itself an email address.
func NormalizeIdentity(username, email string) (string, string) {
	username = strings.TrimSpace(username)
	if strings.Contains(username, "@") {
		username = strings.ToLower(username)
	}
	return username, strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	login, _ = NormalizeIdentity(login, "")
	u, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			_ = auth.ComparePassword(s.dummyHash, password)
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := auth.ComparePassword(u.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := s.now().In(s.location)
	if err := s.repo.TouchLogin(ctx, u.ID, now); err == nil {
		u.LastLoginAt = &now
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// GetByLogin resolves a username or an email address.
func (s *Service) GetByLogin(ctx context.Context, login string) (User, error) {
	login, _ = NormalizeIdentity(login, "")
	u, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	username, email := NormalizeIdentity(req.Username, req.Email)
	role := req.Role
	if role == "" {
		role = auth.RoleAdmin
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now().In(s.location)
	u := User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrExists
		}
		return User{}, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	found, err := s.repo.SetPassword(ctx, strings.TrimSpace(id), hash, s.now().In(s.location))
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Delete refuses to remove the only remaining admin, which would lock
// everyone out of the back-office.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == auth.RoleAdmin {
		admins, err := s.repo.CountRole(ctx, auth.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	deleted, err := s.repo.Delete(ctx, u.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin unless a user with that login
// already exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	username, email = NormalizeIdentity(username, email)
	if username == "" || password == "" {
		return false, nil
	}
	_, err := s.repo.GetByLogin(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, err
	}
	if _, err := s.Create(ctx, CreateRequest{Username: username, Email: email, Password: password, Role: auth.RoleAdmin}); err != nil {
		if errors.Is(err, ErrExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
