package companies

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
	ErrNotFound      = errors.New("company not found")
	ErrDuplicateCNPJ = errors.New("company with this tax id already exists")
)

// Repository provides PostgreSQL backed persistence for companies.
type Repository interface {
	List(ctx context.Context, role *shared.CompanyRole) ([]Company, error)
	Get(ctx context.Context, id uuid.UUID) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, role *shared.CompanyRole) ([]Company, error) {
	query := `SELECT id, name, tax_id, role, city, state, created_at, updated_at FROM companies`
	args := []any{}
	if role != nil {
		query += ` WHERE role = $1`
		args = append(args, *role)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID, &c.Role, &c.City, &c.State, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, tax_id, role, city, state, created_at, updated_at
		FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.TaxID, &c.Role, &c.City, &c.State, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (id, name, tax_id, role, city, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		company.ID, company.Name, company.TaxID, company.Role, company.City, company.State).
		Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Company{}, ErrDuplicateCNPJ
		}
		return Company{}, err
	}
	return company, nil
}
