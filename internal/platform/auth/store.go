package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/platform/db"
)

// LinkToken is one stored magic-link token. Only the bcrypt hash of the
// secret half is kept; the cleartext lives in the emailed link alone.
type LinkToken struct {
	TokenID    string
	Email      string
	SecretHash string
	ExpiresAt  time.Time
	ConsumedAt sql.NullTime
}

type TokenStore interface {
	Create(ctx context.Context, t *LinkToken) error
	GetByID(ctx context.Context, id string) (*LinkToken, error)
	// Consume marks the token used. Returns the affected count: 0 means
	// it was already consumed (or gone), which callers must treat as an
	// invalid link.
	Consume(ctx context.Context, id string, at time.Time) (int64, error)
}

type Store struct{ db db.DBTX }

func NewStore(dbtx db.DBTX) *Store { return &Store{db: dbtx} }

func (s *Store) Create(ctx context.Context, t *LinkToken) error {
	const q = `
INSERT INTO magic_link_tokens (token_id, email, secret_hash, expires_at)
VALUES (?, ?, ?, ?)
`
	_, err := s.db.ExecContext(ctx, q, t.TokenID, t.Email, t.SecretHash, t.ExpiresAt.UTC())
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (*LinkToken, error) {
	const q = `
SELECT token_id, email, secret_hash, expires_at, consumed_at
FROM magic_link_tokens
WHERE token_id = ?
LIMIT 1
`
	var t LinkToken
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&t.TokenID,
		&t.Email,
		&t.SecretHash,
		&t.ExpiresAt,
		&t.ConsumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) Consume(ctx context.Context, id string, at time.Time) (int64, error) {
	const q = `
UPDATE magic_link_tokens
SET consumed_at = ?
WHERE token_id = ? AND consumed_at IS NULL
`
	res, err := s.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
