package session

import (
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
)

type CheckInRequest struct {
	SiteID string `json:"site_id" binding:"required"`
}

type ClockOutRequest struct {
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// SecondsInside as measured by the client. Advisory only: the
	// committed duration is always recomputed from the stored
	// timestamps.
	SecondsInside *int64        `json:"seconds_inside,omitempty"`
	LastPosition  *geo.Position `json:"last_position,omitempty"`
}

type SessionResponse struct {
	SessionULID   string        `json:"session_id"`
	WorkerID      string        `json:"worker_id"`
	SiteID        string        `json:"site_id"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	SecondsInside *int64        `json:"seconds_inside,omitempty"`
	LastPosition  *geo.Position `json:"last_position,omitempty"`
}

type TodayResponse struct {
	Sessions     []SessionResponse `json:"sessions"`
	TotalSeconds int64             `json:"total_seconds"`
}

// Dashboard payloads for the coordinator view. OnDuty rows carry a live
// elapsed value computed at read time from started_at.
type OnDutyWorker struct {
	Session        SessionResponse `json:"session"`
	FullName       *string         `json:"full_name,omitempty"`
	Phone          *string         `json:"phone,omitempty"`
	Email          string          `json:"email"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
}

type CompletedWorker struct {
	WorkerID      string    `json:"worker_id"`
	FullName      *string   `json:"full_name,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         string    `json:"email"`
	FirstStart    time.Time `json:"first_started_at"`
	SecondsInside int64     `json:"seconds_inside"`
}

type DashboardResponse struct {
	SiteID    string            `json:"site_id"`
	OnDuty    []OnDutyWorker    `json:"on_duty"`
	Completed []CompletedWorker `json:"completed_today"`
}

func (s Session) toDTO() SessionResponse {
	resp := SessionResponse{
		SessionULID: s.SessionULID,
		WorkerID:    s.WorkerID,
		SiteID:      s.SiteULID,
		StartedAt:   s.StartedAt,
	}
	if s.EndedAt.Valid {
		v := s.EndedAt.Time
		resp.EndedAt = &v
	}
	if s.SecondsInside.Valid {
		v := s.SecondsInside.Int64
		resp.SecondsInside = &v
	}
	resp.LastPosition = s.LastPosition()
	return resp
}
