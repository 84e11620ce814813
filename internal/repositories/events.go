package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

// EventRepository persists [models.SecurityEvent] rows.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new [EventRepository] with the given (migrated) database connection
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record inserts event, assigning an ID and timestamp when missing.
func (r *EventRepository) Record(event *models.SecurityEvent) error {
	if event.Kind == "" {
		return fmt.Errorf("%w: security event kind is required", shared.ErrInvalidInput)
	}
	if event.ID == "" {
		event.ID = shared.GenerateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO security_events (id, kind, detail, created_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Exec(query, event.ID, event.Kind, event.Detail, event.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// List returns the most recent events first, at most limit rows (all when limit <= 0).
func (r *EventRepository) List(limit int) ([]*models.SecurityEvent, error) {
	query := `SELECT id, kind, detail, created_at FROM security_events ORDER BY created_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		var event models.SecurityEvent
		if err := rows.Scan(&event.ID, &event.Kind, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}
