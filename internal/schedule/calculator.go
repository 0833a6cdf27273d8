package schedule

import (
	"time"

	"barberq/internal/models"
)

// BookedRange is the service interval held by one active booking.
type BookedRange struct {
	Start time.Time
	End   time.Time
}

// PeakWindow is a half-open hour range [Start, End).
type PeakWindow struct {
	Start int
	End   int
}

type PeakWindows struct {
	Morning   PeakWindow
	Afternoon PeakWindow
}

// ServiceEndTime returns start plus the service duration, exact to the minute.
func ServiceEndTime(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// IsPast reports whether the slot, truncated to whole minutes, is strictly
// before now truncated the same way. Truncation avoids sub-minute flicker
// around the current instant.
func IsPast(slot, now time.Time) bool {
	return slot.Truncate(time.Minute).Before(now.Truncate(time.Minute))
}

// IsPeak reports whether the hour falls into one of the configured windows.
func IsPeak(hour int, windows PeakWindows) bool {
	return (hour >= windows.Morning.Start && hour < windows.Morning.End) ||
		(hour >= windows.Afternoon.Start && hour < windows.Afternoon.End)
}

// HasConflict reports whether a candidate interval overlaps any live booked
// range. Ranges that ended strictly before now never block a slot. Overlap is
// closed-open, so back-to-back slots do not conflict.
func HasConflict(candidateStart time.Time, durationMinutes int, ranges []BookedRange, now time.Time) bool {
	candidateEnd := ServiceEndTime(candidateStart, durationMinutes)

	for _, r := range ranges {
		if r.End.Before(now) {
			continue
		}
		if candidateStart.Before(r.End) && candidateEnd.After(r.Start) {
			return true
		}
	}
	return false
}

// EstimatedWait returns the expected wait in minutes for a candidate slot:
// the number of active customers due at or before the slot, times a fixed
// per-customer estimate.
func EstimatedWait(slotTime time.Time, customers []models.Customer, perCustomerMinutes int) int {
	count := 0
	for i := range customers {
		c := &customers[i]
		if !c.IsActive() {
			continue
		}
		if c.ScheduledTime == nil || !c.ScheduledTime.After(slotTime) {
			count++
		}
	}
	return count * perCustomerMinutes
}

// RemainingSeconds returns the seconds left until the estimated end time,
// never negative. A nil end time means no service is running.
func RemainingSeconds(end *time.Time, now time.Time) int {
	if end == nil {
		return 0
	}
	diff := int(end.Sub(now) / time.Second)
	if diff < 0 {
		return 0
	}
	return diff
}

// PositionWaitMinutes is the coarse wait estimate for a waiting customer.
func PositionWaitMinutes(position, perCustomerMinutes int) int {
	if position < 0 {
		return 0
	}
	return position * perCustomerMinutes
}
