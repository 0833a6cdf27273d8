package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barberq/internal/models"
)

const customerColumns = `id, full_name, phone, barber_id, service_id, status, position,
               start_time, estimated_end_time, scheduled_time, created_at`

// CreateCustomer вставляет нового клиента очереди
func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now()
	}

	query := `INSERT INTO customers (id, full_name, phone, barber_id, service_id, status, position,
                    start_time, estimated_end_time, scheduled_time, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.db.ExecContext(ctx, query,
		customer.ID,
		customer.FullName,
		customer.Phone,
		customer.BarberID,
		nullString(customer.ServiceID),
		customer.Status,
		nullInt(customer.Position),
		nullTime(customer.StartTime),
		nullTime(customer.EstimatedEndTime),
		nullTime(customer.ScheduledTime),
		customer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetCustomer возвращает клиента по ID
func (db *DB) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`

	customer, err := scanCustomer(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// GetActiveCustomersByBarber возвращает незавершенные записи барбера.
// Из них строится множество конфликтов для сетки слотов.
func (db *DB) GetActiveCustomersByBarber(ctx context.Context, barberID string) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + `
              FROM customers
              WHERE barber_id = ? AND status != ?
              ORDER BY scheduled_time IS NULL, scheduled_time ASC, created_at ASC`

	return db.queryCustomers(ctx, query, barberID, models.StatusCompleted)
}

// GetWaitingCustomers возвращает очередь ожидания барбера в порядке выдачи
// позиций: по времени записи (NULL в конец), затем по времени создания.
func (db *DB) GetWaitingCustomers(ctx context.Context, barberID string) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + `
              FROM customers
              WHERE barber_id = ? AND status = ?
              ORDER BY scheduled_time IS NULL, scheduled_time ASC, created_at ASC`

	return db.queryCustomers(ctx, query, barberID, models.StatusWaiting)
}

// GetInServiceCustomer возвращает обслуживаемого клиента барбера, если есть
func (db *DB) GetInServiceCustomer(ctx context.Context, barberID string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + `
              FROM customers
              WHERE barber_id = ? AND status = ?
              ORDER BY start_time ASC LIMIT 1`

	customer, err := scanCustomer(db.db.QueryRowContext(ctx, query, barberID, models.StatusInService))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get in-service customer: %w", err)
	}
	return customer, nil
}

// GetExpiredInService возвращает клиентов, чье расчетное время обслуживания
// уже истекло
func (db *DB) GetExpiredInService(ctx context.Context, now time.Time) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + `
              FROM customers
              WHERE status = ? AND estimated_end_time IS NOT NULL AND estimated_end_time < ?
              ORDER BY estimated_end_time ASC`

	return db.queryCustomers(ctx, query, models.StatusInService, now)
}

// GetCustomersByDay возвращает клиентов, относящихся к календарному дню.
// Границы дня передаются как time.Time: драйвер хранит время в UTC, и
// сравнение по date() теряло записи у конца локального дня.
func (db *DB) GetCustomersByDay(ctx context.Context, day time.Time) ([]models.Customer, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	query := `SELECT ` + customerColumns + `
              FROM customers
              WHERE COALESCE(scheduled_time, created_at) >= ? AND COALESCE(scheduled_time, created_at) < ?
              ORDER BY barber_id, scheduled_time IS NULL, scheduled_time ASC, created_at ASC`

	return db.queryCustomers(ctx, query, start, end)
}

// UpdateCustomerPosition выставляет позицию клиента в очереди ожидания
func (db *DB) UpdateCustomerPosition(ctx context.Context, id string, position int) error {
	query := `UPDATE customers SET position = ? WHERE id = ?`

	result, err := db.db.ExecContext(ctx, query, position, id)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return requireRow(result)
}

// UpdateCustomerState применяет смену статуса вместе с сопутствующими полями.
// Позиция и времена обслуживания задаются одним UPDATE, чтобы инварианты
// статуса не расходились между записями.
func (db *DB) UpdateCustomerState(ctx context.Context, id, status string, position *int, startTime, estimatedEndTime *time.Time) error {
	switch status {
	case models.StatusWaiting, models.StatusInService, models.StatusCompleted:
	default:
		return ErrInvalidStatus
	}

	query := `UPDATE customers SET status = ?, position = ?, start_time = ?, estimated_end_time = ? WHERE id = ?`

	result, err := db.db.ExecContext(ctx, query, status, nullInt(position), nullTime(startTime), nullTime(estimatedEndTime), id)
	if err != nil {
		return fmt.Errorf("failed to update customer state: %w", err)
	}
	return requireRow(result)
}

// UpdateCustomerSchedule переносит запись на новое время
func (db *DB) UpdateCustomerSchedule(ctx context.Context, id string, scheduled time.Time) error {
	query := `UPDATE customers SET scheduled_time = ? WHERE id = ?`

	result, err := db.db.ExecContext(ctx, query, scheduled, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return requireRow(result)
}

// DeleteCustomer удаляет клиента из очереди
func (db *DB) DeleteCustomer(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return requireRow(result)
}

func (db *DB) queryCustomers(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var (
		customer  models.Customer
		serviceID sql.NullString
		position  sql.NullInt64
		start     sql.NullTime
		end       sql.NullTime
		scheduled sql.NullTime
	)

	err := row.Scan(
		&customer.ID,
		&customer.FullName,
		&customer.Phone,
		&customer.BarberID,
		&serviceID,
		&customer.Status,
		&position,
		&start,
		&end,
		&scheduled,
		&customer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	customer.ServiceID = serviceID.String
	if position.Valid {
		p := int(position.Int64)
		customer.Position = &p
	}
	if start.Valid {
		t := start.Time
		customer.StartTime = &t
	}
	if end.Valid {
		t := end.Time
		customer.EstimatedEndTime = &t
	}
	if scheduled.Valid {
		t := scheduled.Time
		customer.ScheduledTime = &t
	}
	return &customer, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
