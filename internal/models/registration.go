package models

import "time"

// Registration is a request to join a barber's queue, either as a
// walk-in (ScheduledTime nil) or for a specific slot.
type Registration struct {
	FullName      string     `json:"full_name"`
	Phone         string     `json:"phone"`
	BarberID      string     `json:"barber_id"`
	ServiceID     string     `json:"service_id"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
}
