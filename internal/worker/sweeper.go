package worker

import (
	"context"
	"sync/atomic"
	"time"

	"barberq/internal/domain"
	"barberq/internal/events"
	"barberq/internal/metrics"
	"barberq/internal/models"

	"github.com/rs/zerolog"
)

// Recomputer reassigns queue positions for one barber.
type Recomputer interface {
	RecomputePositions(ctx context.Context, barberID string) error
}

// ExpirySweeper completes in-service customers whose estimated end time
// has passed. One sweep runs at a time; a tick that arrives while the
// previous sweep is still working is skipped.
type ExpirySweeper struct {
	repo      domain.Repository
	recompute Recomputer
	publisher domain.EventPublisher
	notifier  domain.Notifier
	interval  time.Duration
	stepRetry RetryPolicy
	sleep     func(time.Duration)
	now       func() time.Time
	running   atomic.Bool
	log       zerolog.Logger
}

func NewExpirySweeper(
	repo domain.Repository,
	recompute Recomputer,
	publisher domain.EventPublisher,
	notifier domain.Notifier,
	interval time.Duration,
	stepRetry RetryPolicy,
	logger *zerolog.Logger,
) *ExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if stepRetry.MaxRetries == 0 {
		stepRetry = FixedRetry(3, 2*time.Second)
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "sweeper").Logger()
	}
	return &ExpirySweeper{
		repo:      repo,
		recompute: recompute,
		publisher: publisher,
		notifier:  notifier,
		interval:  interval,
		stepRetry: stepRetry,
		sleep:     time.Sleep,
		now:       time.Now,
		log:       log,
	}
}

// Start blocks until ctx is done, sweeping on a fixed cadence.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	defer s.log.Info().Msg("expiry sweeper stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Returns the number of customers auto-completed.
func (s *ExpirySweeper) Sweep(ctx context.Context) int {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("previous sweep still running, skipping tick")
		return 0
	}
	defer s.running.Store(false)

	metrics.IncSweepCycle()

	expired, err := s.repo.GetExpiredInService(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to query expired customers")
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	completed := 0
	for i := range expired {
		// A failure on one customer must not block the rest.
		if s.expireCustomer(ctx, &expired[i]) {
			completed++
		}
	}
	return completed
}

func (s *ExpirySweeper) expireCustomer(ctx context.Context, customer *models.Customer) bool {
	log := s.log.With().Str("customer_id", customer.ID).Str("barber_id", customer.BarberID).Logger()

	err := s.stepRetry.Do(ctx, s.sleep, func() error {
		return s.repo.UpdateCustomerState(ctx, customer.ID, models.StatusCompleted, nil, nil, nil)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to auto-complete customer")
		return false
	}

	metrics.IncSweepExpired()

	err = s.stepRetry.Do(ctx, s.sleep, func() error {
		return s.recompute.RecomputePositions(ctx, customer.BarberID)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to recompute positions after auto-complete")
	}

	err = s.stepRetry.Do(ctx, s.sleep, func() error {
		return s.repo.LogActivity(ctx, models.ActionCustomerCompleted, map[string]any{
			"customer_id":   customer.ID,
			"customer_name": customer.FullName,
			"barber_id":     customer.BarberID,
			"auto":          true,
		})
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to log auto-complete activity")
	}

	if s.publisher != nil {
		_ = s.publisher.PublishJSON(events.EventCustomerCompleted, events.CustomerEventPayload{
			CustomerID: customer.ID,
			FullName:   customer.FullName,
			BarberID:   customer.BarberID,
			Status:     models.StatusCompleted,
			OldStatus:  models.StatusInService,
		})
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyChange(ctx, customer.BarberID); err != nil {
			log.Warn().Err(err).Msg("failed to notify queue change")
		}
	}

	log.Info().Msg("auto-completed expired customer")
	return true
}
