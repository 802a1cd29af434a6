package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for chat messages.
type Repository interface {
	Insert(ctx context.Context, m Message) (Message, error)
	ListByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]Message, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, m Message) (Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO delivery_messages (id, delivery_id, user_id, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`,
		m.ID, m.DeliveryID, m.UserID, m.Body).
		Scan(&m.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

// ListByDelivery returns the conversation oldest first, with author names
// resolved for display.
func (r *repository) ListByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.delivery_id, m.user_id, u.full_name, m.message, m.created_at
		FROM delivery_messages m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.delivery_id = $1
		ORDER BY m.created_at, m.id`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DeliveryID, &m.UserID, &m.AuthorName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
