package tracker

import (
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/session"
)

// SumCompleted adds up the committed seconds of the closed sessions in
// the slice. Open sessions contribute nothing here.
func SumCompleted(sessions []session.SessionResponse) int64 {
	var total int64
	for _, s := range sessions {
		if s.EndedAt == nil {
			continue
		}
		if s.SecondsInside != nil {
			total += *s.SecondsInside
		}
	}
	return total
}

// TodayTotal is the authoritative displayed total: committed seconds of
// every closed session plus, for an open one, the live duration
// (now - started_at). Always derived from timestamps, never from tick
// counts, so a suspended page cannot skew it.
func TodayTotal(sessions []session.SessionResponse, now time.Time) int64 {
	total := SumCompleted(sessions)
	for _, s := range sessions {
		if s.EndedAt == nil {
			total += session.CommittedSeconds(s.StartedAt, now)
		}
	}
	return total
}
