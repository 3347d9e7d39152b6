package profile

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ASTXRTYS/picket-mvp/internal/platform/db"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, id string, fullName, phone, siteULID *string) (int64, error)
}

type Store struct{ db db.DBTX }

func NewStore(dbtx db.DBTX) *Store { return &Store{db: dbtx} }

const selectCols = `profile_id, email, full_name, phone, role, site_ulid, created_at`

func (s *Store) GetByID(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+selectCols+`
	FROM profiles
	WHERE profile_id = ?
	LIMIT 1`, id)
	return scanProfile(row)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+selectCols+`
	FROM profiles
	WHERE email = ?
	LIMIT 1`, email)
	return scanProfile(row)
}

func (s *Store) Create(ctx context.Context, p *Profile) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO profiles (profile_id, email, full_name, phone, role, site_ulid, created_at)
	VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(6))`,
		p.ProfileID, p.Email, nullable(p.FullName), nullable(p.Phone), p.Role, nullable(p.SiteULID))
	return err
}

// Update applies only the non-nil fields. Returns the affected count so
// the caller can distinguish "no such profile".
func (s *Store) Update(ctx context.Context, id string, fullName, phone, siteULID *string) (int64, error) {
	var (
		sets []string
		args []any
	)
	if fullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *fullName)
	}
	if phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *phone)
	}
	if siteULID != nil {
		sets = append(sets, "site_ulid = ?")
		args = append(args, *siteULID)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET "+strings.Join(sets, ", ")+" WHERE profile_id = ?", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanProfile(row *sql.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ProfileID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.SiteULID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func nullable(v sql.NullString) any {
	if !v.Valid || v.String == "" {
		return nil
	}
	return v.String
}
