// Package delivery owns the delivery aggregate: invoice facts, the drop-off
// address, the negotiation fields driven by the state machine, and the
// orchestration of timeline, notification and realtime side effects around
// each transition.
package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Address is the drop-off location, captured at creation and never edited.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// Delivery is the aggregate root. Invoice facts and the address are
// immutable after creation; only the negotiation fields change, and only
// through the state machine.
type Delivery struct {
	ID              uuid.UUID
	SellerCompanyID uuid.UUID
	BuyerCompanyID  uuid.UUID
	CreatedBy       uuid.UUID

	NFNumber       string
	NFSeries       string
	NFDate         time.Time
	NFValue        float64
	SourceDocument string

	Address Address

	Status             negotiation.Status
	BallWith           *shared.CompanyRole
	Proposed           *negotiation.Proposal
	Confirmed          *negotiation.Proposal
	CancellationReason string
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	ReceiptNotes       string

	Notes         string
	InternalNotes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot projects the aggregate into the state machine's input.
func (d Delivery) Snapshot() negotiation.Snapshot {
	return negotiation.Snapshot{
		Status:          d.Status,
		BallWith:        d.BallWith,
		SellerCompanyID: d.SellerCompanyID,
		BuyerCompanyID:  d.BuyerCompanyID,
		Proposed:        d.Proposed,
		Confirmed:       d.Confirmed,
	}
}

// RoleOf returns the negotiation role a company plays on this delivery.
func (d Delivery) RoleOf(companyID uuid.UUID) (shared.CompanyRole, bool) {
	switch companyID {
	case d.SellerCompanyID:
		return shared.RoleSeller, true
	case d.BuyerCompanyID:
		return shared.RoleBuyer, true
	default:
		return "", false
	}
}

// CompanyOf maps a role back to the party registered for it.
func (d Delivery) CompanyOf(role shared.CompanyRole) uuid.UUID {
	if role == shared.RoleSeller {
		return d.SellerCompanyID
	}
	return d.BuyerCompanyID
}

// applyOutcome folds a transition outcome into a copy of the aggregate.
// Fields the outcome does not touch keep their current values.
func applyOutcome(d Delivery, out negotiation.Outcome) Delivery {
	d.Status = out.Status
	d.BallWith = out.BallWith
	if out.Proposed != nil {
		d.Proposed = out.Proposed
	}
	if out.Confirmed != nil {
		d.Confirmed = out.Confirmed
	}
	if out.CancelReason != "" {
		d.CancellationReason = out.CancelReason
	}
	if out.CancelledAt != nil {
		d.CancelledAt = out.CancelledAt
	}
	if out.CompletedAt != nil {
		d.CompletedAt = out.CompletedAt
	}
	if out.ReceiptNotes != "" {
		d.ReceiptNotes = out.ReceiptNotes
	}
	return d
}
