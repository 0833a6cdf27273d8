package schedule

import (
	"testing"
	"time"

	"barberq/internal/models"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 10, hour, min, 0, 0, time.UTC)
}

func TestServiceEndTime(t *testing.T) {
	end := ServiceEndTime(at(10, 0), 45)
	assert.Equal(t, at(10, 45), end)

	// exact, no rounding
	end = ServiceEndTime(at(10, 15), 30)
	assert.Equal(t, at(10, 45), end)
}

func TestIsPast(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 30, 42, 0, time.UTC)

	assert.True(t, IsPast(at(12, 29), now))
	assert.False(t, IsPast(at(12, 31), now))

	// same minute with differing seconds is not in the past
	slot := time.Date(2025, 6, 10, 12, 30, 5, 0, time.UTC)
	assert.False(t, IsPast(slot, now))
}

func TestIsPeak(t *testing.T) {
	windows := PeakWindows{
		Morning:   PeakWindow{Start: 9, End: 11},
		Afternoon: PeakWindow{Start: 16, End: 19},
	}

	assert.True(t, IsPeak(9, windows))
	assert.True(t, IsPeak(10, windows))
	assert.False(t, IsPeak(11, windows), "window end is exclusive")
	assert.False(t, IsPeak(12, windows))
	assert.True(t, IsPeak(16, windows))
	assert.True(t, IsPeak(18, windows))
	assert.False(t, IsPeak(19, windows))
	assert.False(t, IsPeak(8, windows))
}

func TestHasConflict(t *testing.T) {
	now := at(8, 0)
	ranges := []BookedRange{{Start: at(10, 0), End: at(10, 30)}}

	assert.True(t, HasConflict(at(10, 0), 30, ranges, now))
	assert.True(t, HasConflict(at(10, 15), 30, ranges, now))
	assert.True(t, HasConflict(at(9, 45), 30, ranges, now))

	// back-to-back slots never conflict
	assert.False(t, HasConflict(at(9, 30), 30, ranges, now))
	assert.False(t, HasConflict(at(10, 30), 30, ranges, now))
}

func TestHasConflictIgnoresExpiredRanges(t *testing.T) {
	ranges := []BookedRange{{Start: at(9, 0), End: at(9, 30)}}

	// range already over: does not block
	assert.False(t, HasConflict(at(9, 0), 30, ranges, at(11, 0)))
	// range still live: blocks
	assert.True(t, HasConflict(at(9, 0), 30, ranges, at(9, 10)))
}

func TestHasConflictEnclosingRange(t *testing.T) {
	now := at(8, 0)
	ranges := []BookedRange{{Start: at(10, 0), End: at(11, 30)}}

	assert.True(t, HasConflict(at(10, 30), 30, ranges, now))
}

func TestEstimatedWait(t *testing.T) {
	sched := at(10, 0)
	later := at(14, 0)
	customers := []models.Customer{
		{Status: models.StatusWaiting, ScheduledTime: &sched},
		{Status: models.StatusInService},
		{Status: models.StatusCompleted},
		{Status: models.StatusWaiting, ScheduledTime: &later},
	}

	// walk-in in service plus the 10:00 booking count toward a 12:00 slot
	assert.Equal(t, 10, EstimatedWait(at(12, 0), customers, 5))
	// all three active customers count toward a 14:00 slot
	assert.Equal(t, 15, EstimatedWait(at(14, 0), customers, 5))
	// coarser per-customer estimate
	assert.Equal(t, 90, EstimatedWait(at(12, 0), customers, 45))
}

func TestRemainingSeconds(t *testing.T) {
	now := at(10, 0)
	end := at(10, 5)

	assert.Equal(t, 300, RemainingSeconds(&end, now))
	assert.Equal(t, 0, RemainingSeconds(nil, now))

	past := at(9, 0)
	assert.Equal(t, 0, RemainingSeconds(&past, now))
}

func TestPositionWaitMinutes(t *testing.T) {
	assert.Equal(t, 90, PositionWaitMinutes(2, 45))
	assert.Equal(t, 0, PositionWaitMinutes(-1, 45))
}
