package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	platformmail "github.com/ASTXRTYS/picket-mvp/internal/platform/mail"
)

var ErrInvalidLink = errors.New("invalid or expired sign-in link")

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

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

// ProvisionFunc resolves (or lazily creates) the identity behind a
// verified email. Wired to the profile service in main.
type ProvisionFunc func(ctx context.Context, email string) (id, role string, err error)

type Config struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	LinkTTL   time.Duration
	// BaseURL of the client, e.g. https://picket.example.com
	BaseURL string
}

type Service struct {
	store     TokenStore
	mailer    platformmail.Mailer
	provision ProvisionFunc
	cfg       Config
	clock     Clock
	id        IDGen
	secretGen func() string
}

func NewService(db *sql.DB, cfg Config, mailer platformmail.Mailer, provision ProvisionFunc) *Service {
	return &Service{
		store:     NewStore(db),
		mailer:    mailer,
		provision: provision,
		cfg:       cfg,
		clock:     realClock{},
		id:        ulidGen{},
		secretGen: uuid.NewString,
	}
}

// RequestLink stores a one-time token and mails the sign-in link. The
// response never reveals whether the address is known: profiles are
// created lazily at verification anyway.
func (s *Service) RequestLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email address")
	}

	tokenID, err := s.id.New()
	if err != nil {
		return err
	}
	secret := s.secretGen()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.store.Create(ctx, &LinkToken{
		TokenID:    tokenID,
		Email:      addr.Address,
		SecretHash: string(hash),
		ExpiresAt:  now.Add(s.cfg.LinkTTL),
	}); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/v1/auth/verify?token=%s.%s", strings.TrimRight(s.cfg.BaseURL, "/"), tokenID, secret)
	return s.mailer.Send(ctx, platformmail.Message{
		To:      addr.Address,
		Subject: "Your sign-in link",
		Text: "Tap the link below to sign in. It works once and expires in " +
			fmt.Sprintf("%d minutes.\n\n%s\n", int(s.cfg.LinkTTL.Minutes()), link),
	})
}

// Verify checks a `<token_id>.<secret>` pair, consumes it and mints a
// session JWT for the (lazily created) profile behind the email.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return "", ErrInvalidLink
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	if t == nil || t.ConsumedAt.Valid || now.After(t.ExpiresAt) {
		return "", ErrInvalidLink
	}
	if err := bcrypt.CompareHashAndPassword([]byte(t.SecretHash), []byte(secret)); err != nil {
		return "", ErrInvalidLink
	}

	// Single use: losing the consume race invalidates this request too.
	aff, err := s.store.Consume(ctx, id, now)
	if err != nil {
		return "", err
	}
	if aff == 0 {
		return "", ErrInvalidLink
	}

	sub, role, err := s.provision(ctx, t.Email)
	if err != nil {
		return "", err
	}

	jot := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  now.Add(s.cfg.TokenTTL).Unix(),
		"iat":  now.Unix(),
	})
	return jot.SignedString(s.cfg.JWTSecret)
}
