package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"barberq/internal/models"
)

// LogActivity добавляет запись в журнал действий. Details сериализуются в JSON.
func (db *DB) LogActivity(ctx context.Context, action string, details any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode activity details: %w", err)
	}

	query := `INSERT INTO activity_log (action, details, created_at) VALUES (?, ?, ?)`
	if _, err := db.db.ExecContext(ctx, query, action, string(raw), time.Now()); err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

// GetActivityByDay возвращает записи журнала за календарный день.
// Диапазон полуинтервальный, в часовом поясе вызывающего.
func (db *DB) GetActivityByDay(ctx context.Context, day time.Time) ([]models.ActivityEntry, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	query := `SELECT id, action, details, created_at FROM activity_log
              WHERE created_at >= ? AND created_at < ? ORDER BY created_at ASC`

	rows, err := db.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var entry models.ActivityEntry
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
