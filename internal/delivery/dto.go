package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// CreateDeliveryRequest registers a delivery with its initial window offer.
// Dates come in as "2006-01-02" and times as "15:04".
type CreateDeliveryRequest struct {
	BuyerCompanyID string `json:"buyer_company_id" validate:"required,uuid"`

	NFNumber       string  `json:"nf_number" validate:"required,max=44"`
	NFSeries       string  `json:"nf_series" validate:"omitempty,max=10"`
	NFDate         string  `json:"nf_date" validate:"required,datetime=2006-01-02"`
	NFValue        float64 `json:"nf_value" validate:"required,gt=0"`
	SourceDocument string  `json:"source_document" validate:"omitempty,max=100"`

	Street       string `json:"street" validate:"required,max=200"`
	Number       string `json:"number" validate:"required,max=20"`
	Complement   string `json:"complement" validate:"omitempty,max=100"`
	Neighborhood string `json:"neighborhood" validate:"required,max=100"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,len=2"`
	PostalCode   string `json:"postal_code" validate:"required,max=9"`

	ProposedDate      string `json:"proposed_date" validate:"required,datetime=2006-01-02"`
	ProposedTimeStart string `json:"proposed_time_start" validate:"required,datetime=15:04"`
	ProposedTimeEnd   string `json:"proposed_time_end" validate:"required,datetime=15:04"`

	Notes         string `json:"notes" validate:"omitempty,max=1000"`
	InternalNotes string `json:"internal_notes" validate:"omitempty,max=1000"`
}

// CounterProposeRequest carries a replacement window offer.
type CounterProposeRequest struct {
	ProposedDate      string `json:"proposed_date" validate:"required,datetime=2006-01-02"`
	ProposedTimeStart string `json:"proposed_time_start" validate:"required,datetime=15:04"`
	ProposedTimeEnd   string `json:"proposed_time_end" validate:"required,datetime=15:04"`
	Reason            string `json:"reason" validate:"omitempty,max=500"`
}

// CancelRequest terminates the negotiation. The minimum reason length is
// enforced by the state machine, not here.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ConfirmReceiptRequest closes the delivery with optional notes.
type ConfirmReceiptRequest struct {
	ReceiptNotes string `json:"receipt_notes" validate:"omitempty,max=1000"`
}

// ListFilters narrows the caller's delivery listing.
type ListFilters struct {
	Search  string
	Partner *uuid.UUID
	Period  string
	Status  negotiation.Status
	Page    int
	PerPage int
}

// Periods accepted by ListFilters.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Response is the wire form of a delivery for one specific viewer: internal
// notes are stripped for the buyer and the turn projection is included.
type Response struct {
	ID              uuid.UUID `json:"id"`
	SellerCompanyID uuid.UUID `json:"seller_company_id"`
	BuyerCompanyID  uuid.UUID `json:"buyer_company_id"`

	NFNumber       string  `json:"nf_number"`
	NFSeries       string  `json:"nf_series,omitempty"`
	NFDate         string  `json:"nf_date"`
	NFValue        float64 `json:"nf_value"`
	SourceDocument string  `json:"source_document,omitempty"`

	Address Address `json:"address"`

	Status             negotiation.Status  `json:"status"`
	BallWith           *shared.CompanyRole `json:"ball_with"`
	ProposedDate       *string             `json:"proposed_date"`
	ProposedTimeStart  *string             `json:"proposed_time_start"`
	ProposedTimeEnd    *string             `json:"proposed_time_end"`
	ConfirmedDate      *string             `json:"confirmed_date"`
	ConfirmedTimeStart *string             `json:"confirmed_time_start"`
	ConfirmedTimeEnd   *string             `json:"confirmed_time_end"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	ReceiptNotes       string              `json:"receipt_notes,omitempty"`

	Notes         string `json:"notes,omitempty"`
	InternalNotes string `json:"internal_notes,omitempty"`

	IsMyTurn         bool                 `json:"is_my_turn"`
	AvailableActions []negotiation.Action `json:"available_actions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActionsResponse answers GET /deliveries/{id}/actions.
type ActionsResponse struct {
	IsMyTurn         bool                 `json:"is_my_turn"`
	AvailableActions []negotiation.Action `json:"available_actions"`
}

// ListResponse pairs a page of deliveries with pagination metadata.
type ListResponse struct {
	Deliveries []Response        `json:"deliveries"`
	Pagination shared.Pagination `json:"pagination"`
}

// Buckets groups a company's deliveries for the dashboard.
type Buckets struct {
	YourTurn  []Response `json:"your_turn"`
	Waiting   []Response `json:"waiting"`
	Confirmed []Response `json:"confirmed"`
	InTransit []Response `json:"in_transit"`
	Completed []Response `json:"completed"`
	Cancelled []Response `json:"cancelled"`
}

// NewResponse renders a delivery for the given viewer at the given instant.
func NewResponse(d Delivery, viewer shared.Profile, now time.Time) Response {
	resp := Response{
		ID:              d.ID,
		SellerCompanyID: d.SellerCompanyID,
		BuyerCompanyID:  d.BuyerCompanyID,

		NFNumber:       d.NFNumber,
		NFSeries:       d.NFSeries,
		NFDate:         d.NFDate.Format("2006-01-02"),
		NFValue:        d.NFValue,
		SourceDocument: d.SourceDocument,

		Address: d.Address,

		Status:             d.Status,
		BallWith:           d.BallWith,
		CancellationReason: d.CancellationReason,
		CancelledAt:        d.CancelledAt,
		CompletedAt:        d.CompletedAt,
		ReceiptNotes:       d.ReceiptNotes,

		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	if d.Proposed != nil {
		resp.ProposedDate, resp.ProposedTimeStart, resp.ProposedTimeEnd = formatProposal(*d.Proposed)
	}
	if d.Confirmed != nil {
		resp.ConfirmedDate, resp.ConfirmedTimeStart, resp.ConfirmedTimeEnd = formatProposal(*d.Confirmed)
	}

	// Internal notes never cross to the counterparty.
	if viewer.CompanyID == d.SellerCompanyID {
		resp.InternalNotes = d.InternalNotes
	}

	if role, ok := d.RoleOf(viewer.CompanyID); ok {
		actor := negotiation.Actor{CompanyID: viewer.CompanyID, Role: role}
		resp.IsMyTurn = negotiation.IsTurn(d.Snapshot(), actor)
		resp.AvailableActions = negotiation.AvailableActions(d.Snapshot(), actor, now)
	}
	if resp.AvailableActions == nil {
		resp.AvailableActions = []negotiation.Action{}
	}
	return resp
}

func formatProposal(p negotiation.Proposal) (date, start, end *string) {
	ds := p.Date.Format("2006-01-02")
	ss := p.Start.String()
	es := p.End.String()
	return &ds, &ss, &es
}
