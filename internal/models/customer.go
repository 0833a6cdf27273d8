package models

import "time"

// Customer is a queue entry: either a booked appointment or a walk-in.
// Position is only meaningful while the customer is waiting; StartTime and
// EstimatedEndTime are only meaningful while the customer is in service.
type Customer struct {
	ID               string     `json:"id"`
	FullName         string     `json:"full_name"`
	Phone            string     `json:"phone"`
	BarberID         string     `json:"barber_id"`
	ServiceID        string     `json:"service_id,omitempty"`
	Status           string     `json:"status"` // waiting, in-service, completed
	Position         *int       `json:"position"`
	StartTime        *time.Time `json:"start_time"`
	EstimatedEndTime *time.Time `json:"estimated_end_time"`
	ScheduledTime    *time.Time `json:"scheduled_time"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsActive reports whether the customer still occupies the queue.
func (c *Customer) IsActive() bool {
	return c.Status == StatusWaiting || c.Status == StatusInService
}
