package site

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ASTXRTYS/picket-mvp/internal/platform/db"
)

type SiteStore interface {
	List(ctx context.Context) ([]Site, error)
	GetByULID(ctx context.Context, ulid string) (*Site, error)
}

type Store struct{ db db.DBTX }

func NewStore(dbtx db.DBTX) *Store { return &Store{db: dbtx} }

func (s *Store) List(ctx context.Context) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT site_id, site_ulid, name, center_lat, center_lng, radius_m, created_at
	FROM sites`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Site
	for rows.Next() {
		var r Site
		if err := rows.Scan(&r.SiteID, &r.SiteULID, &r.Name, &r.CenterLat, &r.CenterLng, &r.RadiusM, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Site, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT site_id, site_ulid, name, center_lat, center_lng, radius_m, created_at
	FROM sites
	WHERE site_ulid = ?
	LIMIT 1`, ulid)

	var r Site
	err := row.Scan(&r.SiteID, &r.SiteULID, &r.Name, &r.CenterLat, &r.CenterLng, &r.RadiusM, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
