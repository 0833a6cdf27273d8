package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"barberq/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newCustomer(barberID string, status string, scheduled *time.Time, created time.Time) *models.Customer {
	return &models.Customer{
		ID:            uuid.NewString(),
		FullName:      "Test Customer",
		Phone:         "+55 11 91234-5678",
		BarberID:      barberID,
		Status:        status,
		ScheduledTime: scheduled,
		CreatedAt:     created,
	}
}

func TestCreateAndGetCustomer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sched := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	customer := newCustomer("barber-1", models.StatusWaiting, &sched, time.Now())
	customer.ServiceID = "service-1"

	require.NoError(t, db.CreateCustomer(ctx, customer))

	got, err := db.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.FullName, got.FullName)
	assert.Equal(t, customer.BarberID, got.BarberID)
	assert.Equal(t, "service-1", got.ServiceID)
	assert.Equal(t, models.StatusWaiting, got.Status)
	require.NotNil(t, got.ScheduledTime)
	assert.True(t, got.ScheduledTime.Equal(sched))
	assert.Nil(t, got.Position)
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.EstimatedEndTime)
}

func TestGetCustomersByDayLateEvening(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// 23:00 в поясе UTC-3 — это уже следующий день в UTC; запись должна
	// остаться в своем локальном дне.
	loc := time.FixedZone("BRT", -3*60*60)
	evening := time.Date(2025, 6, 10, 23, 0, 0, 0, loc)
	late := newCustomer("barber-1", models.StatusWaiting, &evening, evening)
	require.NoError(t, db.CreateCustomer(ctx, late))

	morning := time.Date(2025, 6, 11, 9, 0, 0, 0, loc)
	nextDay := newCustomer("barber-1", models.StatusWaiting, &morning, morning)
	require.NoError(t, db.CreateCustomer(ctx, nextDay))

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, loc)
	got, err := db.GetCustomersByDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, late.ID, got[0].ID)

	got, err = db.GetCustomersByDay(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, nextDay.ID, got[0].ID)
}

func TestGetCustomerNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetCustomer(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetWaitingCustomersOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	ten := base.Add(2 * time.Hour)
	nine := base.Add(1 * time.Hour)

	// walk-in created first, then two appointments out of order
	walkIn := newCustomer("barber-1", models.StatusWaiting, nil, base)
	late := newCustomer("barber-1", models.StatusWaiting, &ten, base.Add(time.Minute))
	early := newCustomer("barber-1", models.StatusWaiting, &nine, base.Add(2*time.Minute))
	otherBarber := newCustomer("barber-2", models.StatusWaiting, &nine, base)
	inService := newCustomer("barber-1", models.StatusInService, nil, base)

	for _, c := range []*models.Customer{walkIn, late, early, otherBarber, inService} {
		require.NoError(t, db.CreateCustomer(ctx, c))
	}

	waiting, err := db.GetWaitingCustomers(ctx, "barber-1")
	require.NoError(t, err)
	require.Len(t, waiting, 3)

	// scheduled ascending first, walk-ins (NULL) last
	assert.Equal(t, early.ID, waiting[0].ID)
	assert.Equal(t, late.ID, waiting[1].ID)
	assert.Equal(t, walkIn.ID, waiting[2].ID)
}

func TestGetWaitingCustomersCreatedAtTieBreak(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	sched := base.Add(2 * time.Hour)

	first := newCustomer("barber-1", models.StatusWaiting, &sched, base)
	second := newCustomer("barber-1", models.StatusWaiting, &sched, base.Add(time.Second))

	require.NoError(t, db.CreateCustomer(ctx, second))
	require.NoError(t, db.CreateCustomer(ctx, first))

	waiting, err := db.GetWaitingCustomers(ctx, "barber-1")
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, first.ID, waiting[0].ID)
	assert.Equal(t, second.ID, waiting[1].ID)
}

func TestUpdateCustomerState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := newCustomer("barber-1", models.StatusWaiting, nil, time.Now())
	require.NoError(t, db.CreateCustomer(ctx, customer))

	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	require.NoError(t, db.UpdateCustomerState(ctx, customer.ID, models.StatusInService, nil, &start, &end))

	got, err := db.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInService, got.Status)
	assert.Nil(t, got.Position)
	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.EstimatedEndTime)
	assert.True(t, got.StartTime.Equal(start))
	assert.True(t, got.EstimatedEndTime.Equal(end))

	require.NoError(t, db.UpdateCustomerState(ctx, customer.ID, models.StatusCompleted, nil, nil, nil))
	got, err = db.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.EstimatedEndTime)
}

func TestUpdateCustomerStateValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.UpdateCustomerState(ctx, "whatever", "napping", nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = db.UpdateCustomerState(ctx, "missing", models.StatusWaiting, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetExpiredInService(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	expired := newCustomer("barber-1", models.StatusWaiting, nil, now.Add(-2*time.Hour))
	running := newCustomer("barber-1", models.StatusWaiting, nil, now.Add(-time.Hour))
	require.NoError(t, db.CreateCustomer(ctx, expired))
	require.NoError(t, db.CreateCustomer(ctx, running))

	pastStart := now.Add(-time.Hour)
	pastEnd := now.Add(-time.Second)
	require.NoError(t, db.UpdateCustomerState(ctx, expired.ID, models.StatusInService, nil, &pastStart, &pastEnd))

	futureEnd := now.Add(30 * time.Minute)
	require.NoError(t, db.UpdateCustomerState(ctx, running.ID, models.StatusInService, nil, &pastStart, &futureEnd))

	got, err := db.GetExpiredInService(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)
}

func TestUpdatePositionAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := newCustomer("barber-1", models.StatusWaiting, nil, time.Now())
	require.NoError(t, db.CreateCustomer(ctx, customer))

	require.NoError(t, db.UpdateCustomerPosition(ctx, customer.ID, 3))
	got, err := db.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Position)
	assert.Equal(t, 3, *got.Position)

	assert.ErrorIs(t, db.UpdateCustomerPosition(ctx, "missing", 1), ErrNotFound)

	require.NoError(t, db.DeleteCustomer(ctx, customer.ID))
	_, err = db.GetCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	barber := &models.Barber{ID: "barber-1", Name: "Zé", Status: models.BarberAvailable}
	require.NoError(t, db.UpsertBarber(ctx, barber))

	// upsert keeps identity, updates fields
	barber.Status = models.BarberBusy
	require.NoError(t, db.UpsertBarber(ctx, barber))

	got, err := db.GetBarber(ctx, "barber-1")
	require.NoError(t, err)
	assert.Equal(t, models.BarberBusy, got.Status)

	service := &models.Service{ID: "service-1", Name: "Corte", Duration: 30, Description: "Corte simples"}
	require.NoError(t, db.UpsertService(ctx, service))

	services, err := db.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 30, services[0].Duration)

	_, err = db.GetService(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	details := map[string]any{"customer_id": "c1", "barber_id": "b1"}
	require.NoError(t, db.LogActivity(ctx, models.ActionCustomerCompleted, details))

	entries, err := db.GetActivityByDay(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCustomerCompleted, entries[0].Action)
	assert.Contains(t, entries[0].Details, "customer_id")
}

func TestSyncQueue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType: "snapshot",
		EntityID: "barber-1",
		Payload:  `{"date":"2025-06-10"}`,
		Status:   "pending",
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	require.NotZero(t, task.ID)

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil))
	pending, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
