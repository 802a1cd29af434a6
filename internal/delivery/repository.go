package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Repository provides PostgreSQL backed persistence for deliveries.
type Repository interface {
	Create(ctx context.Context, d Delivery) (Delivery, error)
	Get(ctx context.Context, id uuid.UUID) (Delivery, error)
	List(ctx context.Context, companyID uuid.UUID, f ListFilters) ([]Delivery, int, error)
	ListForDashboard(ctx context.Context, companyID uuid.UUID) ([]Delivery, error)
	UpdateNegotiation(ctx context.Context, d Delivery, expectedStatus negotiation.Status, expectedBallWith *shared.CompanyRole) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const deliveryColumns = `
	id, seller_company_id, buyer_company_id, created_by,
	nf_number, nf_series, nf_date, nf_value, source_document,
	street, number, complement, neighborhood, city, state, postal_code,
	status, ball_with,
	proposed_date, proposed_time_start, proposed_time_end,
	confirmed_date, confirmed_time_start, confirmed_time_end,
	cancellation_reason, cancelled_at, completed_at, receipt_notes,
	notes, internal_notes, created_at, updated_at`

func (r *repository) Create(ctx context.Context, d Delivery) (Delivery, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	pDate, pStart, pEnd := proposalColumns(d.Proposed)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO deliveries (
			id, seller_company_id, buyer_company_id, created_by,
			nf_number, nf_series, nf_date, nf_value, source_document,
			street, number, complement, neighborhood, city, state, postal_code,
			status, ball_with,
			proposed_date, proposed_time_start, proposed_time_end,
			notes, internal_notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, NOW(), NOW()
		)
		RETURNING created_at, updated_at`,
		d.ID, d.SellerCompanyID, d.BuyerCompanyID, d.CreatedBy,
		d.NFNumber, nullIfEmpty(d.NFSeries), d.NFDate, d.NFValue, nullIfEmpty(d.SourceDocument),
		d.Address.Street, d.Address.Number, nullIfEmpty(d.Address.Complement),
		d.Address.Neighborhood, d.Address.City, d.Address.State, d.Address.PostalCode,
		d.Status, d.BallWith,
		pDate, pStart, pEnd,
		nullIfEmpty(d.Notes), nullIfEmpty(d.InternalNotes)).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Delivery{}, err
	}
	return d, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Delivery, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Delivery{}, ErrNotFound
		}
		return Delivery{}, err
	}
	return d, nil
}

// List returns the caller company's deliveries, newest first, with optional
// invoice-number search, partner and period filters.
func (r *repository) List(ctx context.Context, companyID uuid.UUID, f ListFilters) ([]Delivery, int, error) {
	where := []string{`(seller_company_id = $1 OR buyer_company_id = $1)`}
	args := []any{companyID}

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf(`nf_number ILIKE $%d`, len(args)))
	}
	if f.Partner != nil {
		args = append(args, *f.Partner)
		where = append(where, fmt.Sprintf(`(seller_company_id = $%d OR buyer_company_id = $%d)`, len(args), len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf(`status = $%d`, len(args)))
	}
	switch f.Period {
	case PeriodWeek:
		where = append(where, `created_at >= date_trunc('week', NOW())`)
	case PeriodMonth:
		where = append(where, `created_at >= date_trunc('month', NOW())`)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page <= 0 {
		page = 1
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		deliveryColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanDeliveries(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForDashboard returns every delivery of the company; the service
// partitions and caps the buckets.
func (r *repository) ListForDashboard(ctx context.Context, companyID uuid.UUID) ([]Delivery, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE seller_company_id = $1 OR buyer_company_id = $1
		ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

// UpdateNegotiation writes the negotiation fields of d, guarded on the
// status and ball_with the caller observed. Zero affected rows means a
// concurrent transition won the race.
func (r *repository) UpdateNegotiation(ctx context.Context, d Delivery, expectedStatus negotiation.Status, expectedBallWith *shared.CompanyRole) error {
	pDate, pStart, pEnd := proposalColumns(d.Proposed)
	cDate, cStart, cEnd := proposalColumns(d.Confirmed)
	tag, err := r.pool.Exec(ctx, `
		UPDATE deliveries SET
			status = $2, ball_with = $3,
			proposed_date = $4, proposed_time_start = $5, proposed_time_end = $6,
			confirmed_date = $7, confirmed_time_start = $8, confirmed_time_end = $9,
			cancellation_reason = $10, cancelled_at = $11,
			completed_at = $12, receipt_notes = $13,
			updated_at = NOW()
		WHERE id = $1 AND status = $14 AND ball_with IS NOT DISTINCT FROM $15`,
		d.ID, d.Status, d.BallWith,
		pDate, pStart, pEnd,
		cDate, cStart, cEnd,
		nullIfEmpty(d.CancellationReason), d.CancelledAt,
		d.CompletedAt, nullIfEmpty(d.ReceiptNotes),
		expectedStatus, expectedBallWith)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func scanDeliveries(rows pgx.Rows) ([]Delivery, error) {
	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDelivery(row pgx.Row) (Delivery, error) {
	var (
		d                  Delivery
		nfSeries           *string
		sourceDocument     *string
		complement         *string
		ballWith           *string
		pDate              *time.Time
		pStart, pEnd       *string
		cDate              *time.Time
		cStart, cEnd       *string
		cancellationReason *string
		receiptNotes       *string
		notes              *string
		internalNotes      *string
	)
	err := row.Scan(
		&d.ID, &d.SellerCompanyID, &d.BuyerCompanyID, &d.CreatedBy,
		&d.NFNumber, &nfSeries, &d.NFDate, &d.NFValue, &sourceDocument,
		&d.Address.Street, &d.Address.Number, &complement,
		&d.Address.Neighborhood, &d.Address.City, &d.Address.State, &d.Address.PostalCode,
		&d.Status, &ballWith,
		&pDate, &pStart, &pEnd,
		&cDate, &cStart, &cEnd,
		&cancellationReason, &d.CancelledAt, &d.CompletedAt, &receiptNotes,
		&notes, &internalNotes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Delivery{}, err
	}

	d.NFSeries = deref(nfSeries)
	d.SourceDocument = deref(sourceDocument)
	d.Address.Complement = deref(complement)
	d.CancellationReason = deref(cancellationReason)
	d.ReceiptNotes = deref(receiptNotes)
	d.Notes = deref(notes)
	d.InternalNotes = deref(internalNotes)

	if ballWith != nil {
		role := shared.CompanyRole(*ballWith)
		d.BallWith = &role
	}
	if d.Proposed, err = assembleProposal(pDate, pStart, pEnd); err != nil {
		return Delivery{}, err
	}
	if d.Confirmed, err = assembleProposal(cDate, cStart, cEnd); err != nil {
		return Delivery{}, err
	}
	return d, nil
}

func assembleProposal(date *time.Time, start, end *string) (*negotiation.Proposal, error) {
	if date == nil || start == nil || end == nil {
		return nil, nil
	}
	s, err := negotiation.ParseTimeOfDay(*start)
	if err != nil {
		return nil, err
	}
	e, err := negotiation.ParseTimeOfDay(*end)
	if err != nil {
		return nil, err
	}
	return &negotiation.Proposal{Date: *date, Start: s, End: e}, nil
}

func proposalColumns(p *negotiation.Proposal) (date *time.Time, start, end *string) {
	if p == nil {
		return nil, nil, nil
	}
	d := p.Date
	s := p.Start.String()
	e := p.End.String()
	return &d, &s, &e
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
