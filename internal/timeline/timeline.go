// Package timeline persists the append-only negotiation history of a
// delivery. Entries are what both parties see in the detail view; they are
// never edited or removed.
package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents a record stored in delivery_timeline.
type Entry struct {
	ID          uuid.UUID      `json:"id"`
	DeliveryID  uuid.UUID      `json:"delivery_id"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	UserID      *uuid.UUID     `json:"user_id,omitempty"`
	OldData     map[string]any `json:"old_data,omitempty"`
	NewData     map[string]any `json:"new_data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Writer appends and reads delivery_timeline rows.
type Writer struct {
	pool *pgxpool.Pool
}

// NewWriter returns a new Writer.
func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// Append persists one entry. Snapshots are stored as JSON.
func (w *Writer) Append(ctx context.Context, e Entry) error {
	if w == nil {
		return errors.New("timeline: writer not initialised")
	}
	if e.DeliveryID == uuid.Nil || e.Action == "" {
		return errors.New("timeline: entry requires delivery_id and action")
	}

	oldJSON, err := marshalSnapshot(e.OldData)
	if err != nil {
		return err
	}
	newJSON, err := marshalSnapshot(e.NewData)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx, `
		INSERT INTO delivery_timeline (id, delivery_id, action, description, user_id, old_data, new_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		uuid.New(), e.DeliveryID, e.Action, e.Description, e.UserID, oldJSON, newJSON)
	return err
}

// List returns all entries for a delivery ordered by creation time.
func (w *Writer) List(ctx context.Context, deliveryID uuid.UUID) ([]Entry, error) {
	rows, err := w.pool.Query(ctx, `
		SELECT id, delivery_id, action, description, user_id, old_data, new_data, created_at
		FROM delivery_timeline
		WHERE delivery_id = $1
		ORDER BY created_at, id`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var oldJSON, newJSON []byte
		if err := rows.Scan(&e.ID, &e.DeliveryID, &e.Action, &e.Description, &e.UserID, &oldJSON, &newJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &e.OldData); err != nil {
				return nil, err
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &e.NewData); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalSnapshot(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}
