package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"barberq/internal/database"
	"barberq/internal/domain"
	"barberq/internal/events"
	"barberq/internal/metrics"
	"barberq/internal/models"
	"barberq/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidName  = errors.New("name must be between 2 and 50 characters")
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrRateLimited  = errors.New("too many registrations for this phone")
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s-]{10,}$`)

// QueueService owns registration, ordering and status transitions for
// the walk-in queue of every barber.
type QueueService struct {
	repo            domain.Repository
	eventBus        domain.EventPublisher
	syncWorker      domain.SyncWorker
	notifier        domain.Notifier
	limiter         domain.RateLimitStore
	grid            schedule.Grid
	serviceEstimate time.Duration
	regPerHour      int
	now             func() time.Time
	logger          *zerolog.Logger
}

func NewQueueService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	notifier domain.Notifier,
	limiter domain.RateLimitStore,
	grid schedule.Grid,
	serviceEstimateMinutes int,
	regPerHour int,
	logger *zerolog.Logger,
) *QueueService {
	if serviceEstimateMinutes <= 0 {
		serviceEstimateMinutes = models.DefaultServiceEstimate
	}
	return &QueueService{
		repo:            repo,
		eventBus:        eventBus,
		syncWorker:      syncWorker,
		notifier:        notifier,
		limiter:         limiter,
		grid:            grid,
		serviceEstimate: time.Duration(serviceEstimateMinutes) * time.Minute,
		regPerHour:      regPerHour,
		now:             time.Now,
		logger:          logger,
	}
}

// ValidateRegistration checks the client-supplied fields before anything
// touches the store.
func (s *QueueService) ValidateRegistration(reg *models.Registration) error {
	name := strings.TrimSpace(reg.FullName)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return ErrInvalidName
	}
	if !phonePattern.MatchString(strings.TrimSpace(reg.Phone)) {
		return ErrInvalidPhone
	}
	return nil
}

// Register adds a customer to a barber's queue. A nil ScheduledTime means
// a walk-in; otherwise the slot is validated against the grid.
func (s *QueueService) Register(ctx context.Context, reg *models.Registration) (*models.Customer, error) {
	if err := s.ValidateRegistration(reg); err != nil {
		return nil, err
	}

	if s.limiter != nil && s.regPerHour > 0 {
		allowed, err := s.limiter.CheckRateLimit(ctx, strings.TrimSpace(reg.Phone), s.regPerHour, time.Hour)
		if err != nil {
			s.log().Warn().Err(err).Msg("rate limit check failed, allowing registration")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	if _, err := s.repo.GetBarber(ctx, reg.BarberID); err != nil {
		return nil, err
	}
	if reg.ServiceID != "" {
		if _, err := s.repo.GetService(ctx, reg.ServiceID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if reg.ScheduledTime != nil {
		if schedule.IsPast(*reg.ScheduledTime, now) {
			return nil, database.ErrPastTime
		}
		active, err := s.repo.GetActiveCustomersByBarber(ctx, reg.BarberID)
		if err != nil {
			return nil, err
		}
		if s.grid.Conflicts(*reg.ScheduledTime, active, now, "") {
			return nil, database.ErrSlotTaken
		}
	}

	customer := &models.Customer{
		ID:            uuid.NewString(),
		FullName:      strings.TrimSpace(reg.FullName),
		Phone:         strings.TrimSpace(reg.Phone),
		BarberID:      reg.BarberID,
		ServiceID:     reg.ServiceID,
		Status:        models.StatusWaiting,
		ScheduledTime: reg.ScheduledTime,
		CreatedAt:     now,
	}

	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	if err := s.RecomputePositions(ctx, customer.BarberID); err != nil {
		s.log().Error().Err(err).Str("barber_id", customer.BarberID).Msg("recompute after register failed")
	}

	kind := "walk_in"
	if customer.ScheduledTime != nil {
		kind = "appointment"
	}
	metrics.IncRegistration(kind)

	s.logActivity(ctx, models.ActionCustomerRegistered, map[string]any{
		"customer_id":   customer.ID,
		"customer_name": customer.FullName,
		"barber_id":     customer.BarberID,
		"kind":          kind,
	})
	s.publish(events.EventCustomerRegistered, customer, "")
	s.afterChange(ctx, customer.BarberID)

	// positions were just assigned; return the fresh row
	return s.repo.GetCustomer(ctx, customer.ID)
}

// UpdateStatus moves a customer to any status. Transitions are not
// restricted: the front desk may pull someone back from completed or
// start service out of order, and each target status fixes up the timing
// fields it owns.
func (s *QueueService) UpdateStatus(ctx context.Context, customerID, status string) (*models.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	oldStatus := customer.Status

	var start, end *time.Time
	switch status {
	case models.StatusInService:
		now := s.now()
		endAt := now.Add(s.serviceEstimate)
		start, end = &now, &endAt
	case models.StatusWaiting, models.StatusCompleted:
		// timing fields reset; waiting customers get a position on recompute
	default:
		return nil, database.ErrInvalidStatus
	}

	if err := s.repo.UpdateCustomerState(ctx, customerID, status, nil, start, end); err != nil {
		return nil, err
	}

	if err := s.RecomputePositions(ctx, customer.BarberID); err != nil {
		s.log().Error().Err(err).Str("barber_id", customer.BarberID).Msg("recompute after status change failed")
	}

	metrics.IncStatusChange(status)

	action := models.ActionStatusChanged
	if status == models.StatusCompleted {
		action = models.ActionCustomerCompleted
	}
	s.logActivity(ctx, action, map[string]any{
		"customer_id":   customer.ID,
		"customer_name": customer.FullName,
		"barber_id":     customer.BarberID,
		"old_status":    oldStatus,
		"new_status":    status,
	})

	eventType := events.EventStatusChanged
	if status == models.StatusCompleted {
		eventType = events.EventCustomerCompleted
	}
	updated, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	s.publish(eventType, updated, oldStatus)
	s.afterChange(ctx, customer.BarberID)

	return updated, nil
}

// Reschedule moves a booking to a new slot. The customer's own booking is
// excluded from the conflict set so moving within the old range works.
func (s *QueueService) Reschedule(ctx context.Context, customerID string, scheduled time.Time) (*models.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if schedule.IsPast(scheduled, now) {
		return nil, database.ErrPastTime
	}

	active, err := s.repo.GetActiveCustomersByBarber(ctx, customer.BarberID)
	if err != nil {
		return nil, err
	}
	if s.grid.Conflicts(scheduled, active, now, customerID) {
		return nil, database.ErrSlotTaken
	}

	if err := s.repo.UpdateCustomerSchedule(ctx, customerID, scheduled); err != nil {
		return nil, err
	}

	if err := s.RecomputePositions(ctx, customer.BarberID); err != nil {
		s.log().Error().Err(err).Str("barber_id", customer.BarberID).Msg("recompute after reschedule failed")
	}

	s.logActivity(ctx, models.ActionScheduleChanged, map[string]any{
		"customer_id":   customer.ID,
		"customer_name": customer.FullName,
		"barber_id":     customer.BarberID,
		"scheduled_to":  scheduled,
	})

	updated, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	s.publish(events.EventScheduleChanged, updated, "")
	s.afterChange(ctx, customer.BarberID)

	return updated, nil
}

// Remove deletes a customer from the queue entirely.
func (s *QueueService) Remove(ctx context.Context, customerID string) error {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}

	if err := s.RecomputePositions(ctx, customer.BarberID); err != nil {
		s.log().Error().Err(err).Str("barber_id", customer.BarberID).Msg("recompute after remove failed")
	}

	s.logActivity(ctx, models.ActionCustomerRemoved, map[string]any{
		"customer_id":   customer.ID,
		"customer_name": customer.FullName,
		"barber_id":     customer.BarberID,
	})
	s.publish(events.EventCustomerRemoved, customer, "")
	s.afterChange(ctx, customer.BarberID)

	return nil
}

// Queue returns the barber's non-completed customers in display order.
func (s *QueueService) Queue(ctx context.Context, barberID string) ([]models.Customer, error) {
	customers, err := s.repo.GetActiveCustomersByBarber(ctx, barberID)
	if err != nil {
		return nil, err
	}
	metrics.SetQueueLength(barberID, len(customers))
	return customers, nil
}

// Slots builds the day's slot grid for a barber. excludeID is the booking
// being rescheduled, or empty.
func (s *QueueService) Slots(ctx context.Context, barberID string, day time.Time, excludeID string) ([]schedule.Slot, error) {
	active, err := s.repo.GetActiveCustomersByBarber(ctx, barberID)
	if err != nil {
		return nil, err
	}
	return s.grid.Generate(day, active, s.now(), excludeID), nil
}

// RecomputePositions reassigns 1-based positions over the waiting set,
// ordered by scheduled time with walk-ins last, ties broken by creation
// time. Only rows whose position actually changed are written, so the
// pass is idempotent and heals gaps left by partial failures.
func (s *QueueService) RecomputePositions(ctx context.Context, barberID string) error {
	waiting, err := s.repo.GetWaitingCustomers(ctx, barberID)
	if err != nil {
		return err
	}

	for i := range waiting {
		want := i + 1
		if waiting[i].Position != nil && *waiting[i].Position == want {
			continue
		}
		if err := s.repo.UpdateCustomerPosition(ctx, waiting[i].ID, want); err != nil {
			return err
		}
	}

	metrics.IncPositionRecompute()
	s.publishPositions(barberID)
	return nil
}

func (s *QueueService) publish(eventType string, customer *models.Customer, oldStatus string) {
	if s.eventBus == nil {
		return
	}
	_ = s.eventBus.PublishJSON(eventType, events.CustomerEventPayload{
		CustomerID:    customer.ID,
		FullName:      customer.FullName,
		BarberID:      customer.BarberID,
		ServiceID:     customer.ServiceID,
		Status:        customer.Status,
		Position:      customer.Position,
		ScheduledTime: customer.ScheduledTime,
		OldStatus:     oldStatus,
	})
}

func (s *QueueService) publishPositions(barberID string) {
	if s.eventBus == nil {
		return
	}
	_ = s.eventBus.PublishJSON(events.EventPositionsUpdated, events.CustomerEventPayload{BarberID: barberID})
}

func (s *QueueService) logActivity(ctx context.Context, action string, details map[string]any) {
	if err := s.repo.LogActivity(ctx, action, details); err != nil {
		s.log().Error().Err(err).Str("action", action).Msg("failed to log activity")
	}
}

// afterChange pushes the side effects every mutation shares: a Sheets
// snapshot for today and a change notification for subscribers.
func (s *QueueService) afterChange(ctx context.Context, barberID string) {
	if s.syncWorker != nil {
		if err := s.syncWorker.EnqueueSnapshot(ctx, barberID, s.now()); err != nil {
			s.log().Warn().Err(err).Msg("failed to enqueue sheets snapshot")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyChange(ctx, barberID); err != nil {
			s.log().Warn().Err(err).Msg("failed to notify queue change")
		}
	}
}

func (s *QueueService) log() *zerolog.Logger {
	if s.logger != nil {
		return s.logger
	}
	nop := zerolog.Nop()
	return &nop
}
