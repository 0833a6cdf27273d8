package models

import "time"

// Barber availability is informational for the UI; the scheduling engine
// does not enforce it.
type Barber struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Status    string    `json:"status" yaml:"status"` // available, busy, offline
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

type Service struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Duration    int       `json:"duration" yaml:"duration"` // minutes
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}
