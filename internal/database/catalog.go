package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barberq/internal/models"
)

// UpsertBarber создает или обновляет барбера (посев из конфигурации)
func (db *DB) UpsertBarber(ctx context.Context, barber *models.Barber) error {
	if barber.CreatedAt.IsZero() {
		barber.CreatedAt = time.Now()
	}

	query := `INSERT INTO barbers (id, name, status, created_at)
              VALUES (?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  status = excluded.status`

	_, err := db.db.ExecContext(ctx, query, barber.ID, barber.Name, barber.Status, barber.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert barber: %w", err)
	}
	return nil
}

// GetBarber возвращает барбера по ID
func (db *DB) GetBarber(ctx context.Context, id string) (*models.Barber, error) {
	query := `SELECT id, name, status, created_at FROM barbers WHERE id = ?`

	var barber models.Barber
	err := db.db.QueryRowContext(ctx, query, id).Scan(&barber.ID, &barber.Name, &barber.Status, &barber.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get barber: %w", err)
	}
	return &barber, nil
}

// ListBarbers возвращает всех барберов по имени
func (db *DB) ListBarbers(ctx context.Context) ([]models.Barber, error) {
	query := `SELECT id, name, status, created_at FROM barbers ORDER BY name ASC`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list barbers: %w", err)
	}
	defer rows.Close()

	var barbers []models.Barber
	for rows.Next() {
		var barber models.Barber
		if err := rows.Scan(&barber.ID, &barber.Name, &barber.Status, &barber.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan barber: %w", err)
		}
		barbers = append(barbers, barber)
	}
	return barbers, rows.Err()
}

// UpdateBarberStatus обновляет информационный статус барбера
func (db *DB) UpdateBarberStatus(ctx context.Context, id, status string) error {
	result, err := db.db.ExecContext(ctx, `UPDATE barbers SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update barber status: %w", err)
	}
	return requireRow(result)
}

// UpsertService создает или обновляет услугу (посев из конфигурации)
func (db *DB) UpsertService(ctx context.Context, service *models.Service) error {
	if service.CreatedAt.IsZero() {
		service.CreatedAt = time.Now()
	}

	query := `INSERT INTO services (id, name, duration_minutes, description, created_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  duration_minutes = excluded.duration_minutes,
                  description = excluded.description`

	_, err := db.db.ExecContext(ctx, query, service.ID, service.Name, service.Duration, service.Description, service.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}

// GetService возвращает услугу по ID
func (db *DB) GetService(ctx context.Context, id string) (*models.Service, error) {
	query := `SELECT id, name, duration_minutes, description, created_at FROM services WHERE id = ?`

	var service models.Service
	err := db.db.QueryRowContext(ctx, query, id).Scan(
		&service.ID, &service.Name, &service.Duration, &service.Description, &service.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

// ListServices возвращает все услуги по имени
func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	query := `SELECT id, name, duration_minutes, description, created_at FROM services ORDER BY name ASC`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var service models.Service
		if err := rows.Scan(&service.ID, &service.Name, &service.Duration, &service.Description, &service.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, service)
	}
	return services, rows.Err()
}
