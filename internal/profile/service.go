package profile

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type Service struct {
	store ProfileStore
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db), id: ulidGen{}}
}

func NewServiceWithStore(store ProfileStore, id IDGen) *Service {
	return &Service{store: store, id: id}
}

// EnsureProfile returns the profile for email, creating a bare worker
// profile on first sign-in. Case on the email is not significant.
func (s *Service) EnsureProfile(ctx context.Context, email string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalid("email is required")
	}

	p, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	p = &Profile{
		ProfileID: id,
		Email:     email,
		Role:      RoleWorker,
	}
	if err := s.store.Create(ctx, p); err != nil {
		// Lost a race with another sign-in for the same address: the
		// existing row wins.
		if existing, gerr := s.store.GetByEmail(ctx, email); gerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (ProfileResponse, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return ProfileResponse{}, err
	}
	if p == nil {
		return ProfileResponse{}, ErrNotFound("profile not found")
	}
	return p.toDTO(), nil
}

func (s *Service) GetModel(ctx context.Context, id string) (*Profile, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, req UpdateProfileRequest) (ProfileResponse, error) {
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return ProfileResponse{}, ErrInvalid("full_name must not be empty")
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) == "" {
		return ProfileResponse{}, ErrInvalid("phone must not be empty")
	}

	aff, err := s.store.Update(ctx, id, req.FullName, req.Phone, req.SiteID)
	if err != nil {
		return ProfileResponse{}, err
	}
	if aff == 0 {
		// Nothing changed is fine when the row exists; re-read decides.
		if p, gerr := s.store.GetByID(ctx, id); gerr != nil {
			return ProfileResponse{}, gerr
		} else if p == nil {
			return ProfileResponse{}, ErrNotFound("profile not found")
		}
	}
	return s.Get(ctx, id)
}
