package session

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
	"github.com/ASTXRTYS/picket-mvp/internal/platform/db"
)

// WorkerRow is a session joined with the worker's profile, for the
// coordinator dashboard.
type WorkerRow struct {
	Session
	FullName sql.NullString
	Phone    sql.NullString
	Email    string
}

type SessionStore interface {
	// Create inserts an open session. The schema keeps a generated
	// is_open column under a (worker_id, is_open) unique key, so a
	// second open session for the same worker fails atomically in the
	// database; that failure surfaces as CONFLICT.
	Create(ctx context.Context, s *Session) error
	GetByULID(ctx context.Context, ulid string) (*Session, error)
	// Close sets the closing fields iff the session is still open.
	// Returns the affected count: 0 means it was already closed.
	Close(ctx context.Context, ulid string, endedAt time.Time, seconds int64, last *geo.Position) (int64, error)
	FindOpen(ctx context.Context, workerID string) (*Session, error)
	ListOnOrAfter(ctx context.Context, workerID string, dayStart time.Time) ([]Session, error)
	ListOpenBySite(ctx context.Context, siteULID string) ([]WorkerRow, error)
	ListClosedBySiteOnOrAfter(ctx context.Context, siteULID string, dayStart time.Time) ([]WorkerRow, error)
}

type Store struct{ db db.DBTX }

func NewStore(dbtx db.DBTX) *Store { return &Store{db: dbtx} }

const sessionCols = `session_id, session_ulid, worker_id, site_ulid, started_at, ended_at, seconds_inside, last_lat, last_lng`

func (s *Store) Create(ctx context.Context, sess *Session) error {
	const q = `
	INSERT INTO attendance_sessions (session_ulid, worker_id, site_ulid, started_at)
	VALUES (?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q, sess.SessionULID, sess.WorkerID, sess.SiteULID, sess.StartedAt.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 && strings.Contains(me.Message, "uniq_open") {
			return ErrConflict("an open session already exists for this worker")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sess.SessionID = id
	return nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+sessionCols+`
	FROM attendance_sessions
	WHERE session_ulid = ?
	LIMIT 1`, ulid)
	return scanSession(row)
}

func (s *Store) Close(ctx context.Context, ulid string, endedAt time.Time, seconds int64, last *geo.Position) (int64, error) {
	var lat, lng any
	if last != nil {
		lat, lng = last.Lat, last.Lng
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE attendance_sessions
	SET ended_at = ?, seconds_inside = ?, last_lat = ?, last_lng = ?
	WHERE session_ulid = ? AND ended_at IS NULL`,
		endedAt.UTC(), seconds, lat, lng, ulid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) FindOpen(ctx context.Context, workerID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+sessionCols+`
	FROM attendance_sessions
	WHERE worker_id = ? AND ended_at IS NULL
	ORDER BY started_at DESC
	LIMIT 1`, workerID)
	return scanSession(row)
}

func (s *Store) ListOnOrAfter(ctx context.Context, workerID string, dayStart time.Time) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+sessionCols+`
	FROM attendance_sessions
	WHERE worker_id = ? AND started_at >= ?
	ORDER BY started_at ASC, session_id ASC`, workerID, dayStart.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var r Session
		if err := scanSessionFields(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListOpenBySite(ctx context.Context, siteULID string) ([]WorkerRow, error) {
	return s.listWithProfiles(ctx, `
	SELECT `+prefixedSessionCols+`, p.full_name, p.phone, p.email
	FROM attendance_sessions a
	JOIN profiles p ON p.profile_id = a.worker_id
	WHERE a.site_ulid = ? AND a.ended_at IS NULL
	ORDER BY a.started_at DESC`, siteULID)
}

func (s *Store) ListClosedBySiteOnOrAfter(ctx context.Context, siteULID string, dayStart time.Time) ([]WorkerRow, error) {
	return s.listWithProfiles(ctx, `
	SELECT `+prefixedSessionCols+`, p.full_name, p.phone, p.email
	FROM attendance_sessions a
	JOIN profiles p ON p.profile_id = a.worker_id
	WHERE a.site_ulid = ? AND a.started_at >= ? AND a.ended_at IS NOT NULL
	ORDER BY a.started_at ASC, a.session_id ASC`, siteULID, dayStart.UTC())
}

const prefixedSessionCols = `a.session_id, a.session_ulid, a.worker_id, a.site_ulid, a.started_at, a.ended_at, a.seconds_inside, a.last_lat, a.last_lng`

func (s *Store) listWithProfiles(ctx context.Context, q string, args ...any) ([]WorkerRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkerRow
	for rows.Next() {
		var r WorkerRow
		if err := rows.Scan(
			&r.SessionID, &r.SessionULID, &r.WorkerID, &r.SiteULID,
			&r.StartedAt, &r.EndedAt, &r.SecondsInside, &r.LastLat, &r.LastLng,
			&r.FullName, &r.Phone, &r.Email,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionFields(row rowScanner, r *Session) error {
	return row.Scan(
		&r.SessionID, &r.SessionULID, &r.WorkerID, &r.SiteULID,
		&r.StartedAt, &r.EndedAt, &r.SecondsInside, &r.LastLat, &r.LastLng,
	)
}

func scanSession(row *sql.Row) (*Session, error) {
	var r Session
	err := scanSessionFields(row, &r)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
