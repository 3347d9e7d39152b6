package profile

import (
	"database/sql"
	"time"
)

const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

// Profile is the worker record. The profile id doubles as the
// authenticated identity (JWT sub). FullName and Phone start out empty:
// a profile is created lazily on first verified sign-in and completed
// by the worker afterwards.
type Profile struct {
	ProfileID string
	Email     string
	FullName  sql.NullString
	Phone     sql.NullString
	Role      string
	SiteULID  sql.NullString
	CreatedAt time.Time
}

// Complete reports whether the required fields have been filled in.
func (p Profile) Complete() bool {
	return p.FullName.Valid && p.FullName.String != "" && p.Phone.Valid && p.Phone.String != ""
}
