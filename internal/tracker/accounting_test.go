package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ASTXRTYS/picket-mvp/internal/session"
)

func closedSession(start time.Time, secs int64) session.SessionResponse {
	end := start.Add(time.Duration(secs) * time.Second)
	return session.SessionResponse{StartedAt: start, EndedAt: &end, SecondsInside: &secs}
}

func TestSumCompleted(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	sessions := []session.SessionResponse{
		closedSession(base, 3600),
		closedSession(base.Add(2*time.Hour), 1800),
		{StartedAt: base.Add(4 * time.Hour)}, // open, contributes nothing
	}
	assert.EqualValues(t, 5400, SumCompleted(sessions))
	assert.EqualValues(t, 0, SumCompleted(nil))
}

func TestTodayTotalIncludesLiveSpan(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	now := base.Add(4*time.Hour + 25*time.Minute)
	sessions := []session.SessionResponse{
		closedSession(base, 3600),
		{StartedAt: base.Add(4 * time.Hour)}, // open for 25 minutes
	}
	assert.EqualValues(t, 3600+1500, TodayTotal(sessions, now))
}
