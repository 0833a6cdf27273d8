package domain

import (
	"context"
	"time"

	"barberq/internal/models"
)

// Repository is the durable store behind the queue services.
type Repository interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	GetActiveCustomersByBarber(ctx context.Context, barberID string) ([]models.Customer, error)
	GetWaitingCustomers(ctx context.Context, barberID string) ([]models.Customer, error)
	GetInServiceCustomer(ctx context.Context, barberID string) (*models.Customer, error)
	GetExpiredInService(ctx context.Context, now time.Time) ([]models.Customer, error)
	GetCustomersByDay(ctx context.Context, day time.Time) ([]models.Customer, error)
	UpdateCustomerPosition(ctx context.Context, id string, position int) error
	UpdateCustomerState(ctx context.Context, id, status string, position *int, startTime, estimatedEndTime *time.Time) error
	UpdateCustomerSchedule(ctx context.Context, id string, scheduled time.Time) error
	DeleteCustomer(ctx context.Context, id string) error

	UpsertBarber(ctx context.Context, barber *models.Barber) error
	GetBarber(ctx context.Context, id string) (*models.Barber, error)
	ListBarbers(ctx context.Context) ([]models.Barber, error)
	UpdateBarberStatus(ctx context.Context, id, status string) error
	UpsertService(ctx context.Context, service *models.Service) error
	GetService(ctx context.Context, id string) (*models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)

	LogActivity(ctx context.Context, action string, details any) error
	GetActivityByDay(ctx context.Context, day time.Time) ([]models.ActivityEntry, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier fans queue-change notifications out to connected clients.
type Notifier interface {
	NotifyChange(ctx context.Context, barberID string) error
}

// RateLimitStore tracks registration attempts per phone number.
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type SheetsWriter interface {
	ReplaceQueueSheet(ctx context.Context, day time.Time, customers []models.Customer) error
	AppendActivity(ctx context.Context, entries []models.ActivityEntry) error
}

type SyncWorker interface {
	EnqueueSnapshot(ctx context.Context, barberID string, day time.Time) error
	EnqueueActivity(ctx context.Context, entry *models.ActivityEntry) error
}

// QueueService covers registration, ordering and transitions for one shop.
type QueueService interface {
	Register(ctx context.Context, reg *models.Registration) (*models.Customer, error)
	UpdateStatus(ctx context.Context, customerID, status string) (*models.Customer, error)
	Reschedule(ctx context.Context, customerID string, scheduled time.Time) (*models.Customer, error)
	Remove(ctx context.Context, customerID string) error
	Queue(ctx context.Context, barberID string) ([]models.Customer, error)
	RecomputePositions(ctx context.Context, barberID string) error
}

type CatalogService interface {
	Barbers(ctx context.Context) ([]models.Barber, error)
	Services(ctx context.Context) ([]models.Service, error)
}
