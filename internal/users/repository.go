package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// Repository provides PostgreSQL backed persistence for users.
type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (shared.Profile, error)
	ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]User, error)
	Create(ctx context.Context, user User) (User, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// GetProfile resolves a user id into the caller profile, joining the
// company for its negotiation role. Inactive users resolve to nothing.
func (r *repository) GetProfile(ctx context.Context, userID uuid.UUID) (shared.Profile, error) {
	var p shared.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.company_id, c.role, u.full_name
		FROM users u
		INNER JOIN companies c ON c.id = u.company_id
		WHERE u.id = $1 AND u.active`, userID).
		Scan(&p.UserID, &p.CompanyID, &p.CompanyRole, &p.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.Profile{}, ErrNotFound
		}
		return shared.Profile{}, err
	}
	return p, nil
}

func (r *repository) ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, full_name, email, password_hash, active, created_at
		FROM users
		WHERE company_id = $1 AND active
		ORDER BY full_name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.FullName, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, user User) (User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, company_id, full_name, email, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING created_at`,
		user.ID, user.CompanyID, user.FullName, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	user.Active = true
	return user, nil
}

func (r *repository) Deactivate(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET active = FALSE WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
