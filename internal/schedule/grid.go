package schedule

import (
	"fmt"
	"strings"
	"time"

	"barberq/internal/config"
	"barberq/internal/models"
)

// SlotLabelLayout is the 12-hour clock format used by the slot grid.
const SlotLabelLayout = "3:04 PM"

// Slot is one offerable moment on the business-day grid. Slots are derived on
// every call and never persisted.
type Slot struct {
	Time          time.Time `json:"-"`
	Label         string    `json:"time"`
	Available     bool      `json:"available"`
	Peak          bool      `json:"is_peak"`
	EstimatedWait int       `json:"estimated_wait"` // minutes
}

// Grid describes the slot geometry of a business day. The interval is
// barber-wide and independent of per-service durations so slots align across
// services.
type Grid struct {
	StartMinutes    int // от полуночи
	EndMinutes      int // полуинтервал: слот на EndMinutes не выдается
	Interval        int // минуты
	Peak            PeakWindows
	WaitPerCustomer int // минуты на клиента для оценки ожидания
}

// GridFromConfig builds a Grid from the queue section of the config.
func GridFromConfig(cfg config.QueueConfig) (Grid, error) {
	start, err := config.ParseClock(cfg.BusinessStart)
	if err != nil {
		return Grid{}, fmt.Errorf("business start: %w", err)
	}
	end, err := config.ParseClock(cfg.BusinessEnd)
	if err != nil {
		return Grid{}, fmt.Errorf("business end: %w", err)
	}

	return Grid{
		StartMinutes: start,
		EndMinutes:   end,
		Interval:     cfg.SlotInterval,
		Peak: PeakWindows{
			Morning:   PeakWindow{Start: cfg.PeakMorningStart, End: cfg.PeakMorningEnd},
			Afternoon: PeakWindow{Start: cfg.PeakAfternoonStart, End: cfg.PeakAfternoonEnd},
		},
		WaitPerCustomer: cfg.GridWaitPerCustomer,
	}, nil
}

// Generate produces the ordered slot grid for one day given the barber's
// non-completed bookings. No slot is omitted; unavailable slots are flagged
// and the caller decides whether to hide them. excludeID removes one
// booking's own range from the conflict set, which the reschedule path needs
// so a booking does not conflict with itself.
func (g Grid) Generate(day time.Time, bookings []models.Customer, now time.Time, excludeID string) []Slot {
	ranges := g.bookedRanges(bookings, excludeID)

	var slots []Slot
	for m := g.StartMinutes; m < g.EndMinutes; m += g.Interval {
		slotTime := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, day.Location())

		past := IsPast(slotTime, now)
		conflict := HasConflict(slotTime, g.Interval, ranges, now)

		slots = append(slots, Slot{
			Time:          slotTime,
			Label:         FormatLabel(slotTime),
			Available:     !past && !conflict,
			Peak:          IsPeak(slotTime.Hour(), g.Peak),
			EstimatedWait: EstimatedWait(slotTime, bookings, g.WaitPerCustomer),
		})
	}
	return slots
}

// Conflicts reports whether a candidate time collides with an existing
// booking on the grid. Used by registration and reschedule before a slot
// is committed.
func (g Grid) Conflicts(candidate time.Time, bookings []models.Customer, now time.Time, excludeID string) bool {
	return HasConflict(candidate, g.Interval, g.bookedRanges(bookings, excludeID), now)
}

// bookedRanges maps each active booking with a scheduled time to its grid
// interval. Walk-ins carry no scheduled time and never block the grid.
func (g Grid) bookedRanges(bookings []models.Customer, excludeID string) []BookedRange {
	var ranges []BookedRange
	for i := range bookings {
		b := &bookings[i]
		if b.Status == models.StatusCompleted || b.ScheduledTime == nil {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		ranges = append(ranges, BookedRange{
			Start: *b.ScheduledTime,
			End:   ServiceEndTime(*b.ScheduledTime, g.Interval),
		})
	}
	return ranges
}

// FormatLabel renders a slot time as the grid label, e.g. "9:00 AM".
func FormatLabel(t time.Time) string {
	return t.Format(SlotLabelLayout)
}

// ParseLabel resolves a grid label back to a concrete time on the given day.
func ParseLabel(day time.Time, label string) (time.Time, error) {
	parsed, err := time.Parse(SlotLabelLayout, strings.ToUpper(strings.TrimSpace(label)))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot label %q", label)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}
