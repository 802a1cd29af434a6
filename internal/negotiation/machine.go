// Package negotiation holds the delivery-window negotiation state machine
// and the per-viewer turn projector. It is pure: callers inject the current
// snapshot, the acting party and the clock, and receive the resulting state
// plus side-effect descriptors (timeline tag, parties to notify). All
// persistence happens in the delivery service, never here.
package negotiation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Status is the lifecycle of a delivery negotiation.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusAwaitingBuyer  Status = "AWAITING_BUYER"
	StatusAwaitingSeller Status = "AWAITING_SELLER"
	StatusConfirmed      Status = "CONFIRMED"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusAwaitingBuyer, StatusAwaitingSeller,
		StatusConfirmed, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Negotiating reports whether the delivery is waiting on one of the parties.
func (s Status) Negotiating() bool {
	return s == StatusAwaitingBuyer || s == StatusAwaitingSeller
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// AwaitingRole maps a role to the status that waits on it.
func AwaitingRole(role shared.CompanyRole) Status {
	if role == shared.RoleBuyer {
		return StatusAwaitingBuyer
	}
	return StatusAwaitingSeller
}

// Action is a negotiation move requested by one of the parties.
type Action string

const (
	ActionAccept         Action = "ACCEPT"
	ActionCounterPropose Action = "COUNTER_PROPOSE"
	ActionCancel         Action = "CANCEL"
	ActionMarkInTransit  Action = "MARK_IN_TRANSIT"
	ActionConfirmReceipt Action = "CONFIRM_RECEIPT"
)

// Timeline action tags recorded for each accepted transition.
const (
	EventCreated         = "CREATED"
	EventConfirmed       = "CONFIRMED"
	EventProposedNewDate = "PROPOSED_NEW_DATE"
	EventCancelled       = "CANCELLED"
	EventInTransit       = "IN_TRANSIT"
	EventDelivered       = "DELIVERED"
)

// Guard limits.
const (
	MinWindowMinutes = 60
	MinReasonLength  = 10
)

// Guard and turn errors. Guard failures abort before any mutation.
var (
	ErrNotYourTurn       = errors.New("negotiation: not your turn")
	ErrActionUnavailable = errors.New("negotiation: action not available")
	ErrMissingProposal   = errors.New("negotiation: no pending proposal")
	ErrPastDate          = errors.New("negotiation: date cannot be in the past")
	ErrWindowOrder       = errors.New("negotiation: window end must be after start")
	ErrWindowTooShort    = errors.New("negotiation: window must span at least 60 minutes")
	ErrReasonTooShort    = errors.New("negotiation: reason must have at least 10 characters")
	ErrNotDeliveryDay    = errors.New("negotiation: confirmed delivery date not reached")
)

// Snapshot is the negotiation-relevant slice of a delivery row.
type Snapshot struct {
	Status          Status
	BallWith        *shared.CompanyRole
	SellerCompanyID uuid.UUID
	BuyerCompanyID  uuid.UUID
	Proposed        *Proposal
	Confirmed       *Proposal
}

// Actor identifies the company attempting an action.
type Actor struct {
	CompanyID uuid.UUID
	Role      shared.CompanyRole
}

// Input carries the action-specific payload.
type Input struct {
	Proposal     *Proposal
	Reason       string
	ReceiptNotes string
}

// Outcome describes the state after an accepted transition plus the side
// effects the caller must perform (timeline append, notification fan-out).
type Outcome struct {
	Status           Status
	BallWith         *shared.CompanyRole
	Proposed         *Proposal
	Confirmed        *Proposal
	PreviousProposal *Proposal
	CounterReason    string
	CancelReason     string
	CancelledAt      *time.Time
	CompletedAt      *time.Time
	ReceiptNotes     string
	TimelineAction   string
	NotifyRoles      []shared.CompanyRole
}

// partyMatches checks that the actor's company id is the party for its role.
func partyMatches(snap Snapshot, actor Actor) bool {
	switch actor.Role {
	case shared.RoleSeller:
		return actor.CompanyID == snap.SellerCompanyID
	case shared.RoleBuyer:
		return actor.CompanyID == snap.BuyerCompanyID
	default:
		return false
	}
}

// holdsTurn checks the ball_with marker against the actor.
func holdsTurn(snap Snapshot, actor Actor) bool {
	return snap.BallWith != nil && *snap.BallWith == actor.Role && partyMatches(snap, actor)
}

// ValidateProposal applies the window guards shared by the initial offer
// and every counter-proposal: non-past date, ordered window, minimum gap.
func ValidateProposal(p Proposal, now time.Time) error {
	if BeforeDay(p.Date, now) {
		return ErrPastDate
	}
	gap := p.WindowMinutes()
	if gap <= 0 {
		return ErrWindowOrder
	}
	if gap < MinWindowMinutes {
		return ErrWindowTooShort
	}
	return nil
}

// Transition applies one action to a snapshot. It never mutates its inputs;
// a non-nil error means the delivery must be left untouched.
func Transition(snap Snapshot, actor Actor, action Action, in Input, now time.Time) (Outcome, error) {
	if !partyMatches(snap, actor) {
		return Outcome{}, ErrActionUnavailable
	}

	switch action {
	case ActionAccept, ActionCounterPropose, ActionCancel:
		if !snap.Status.Negotiating() {
			return Outcome{}, ErrActionUnavailable
		}
		if !holdsTurn(snap, actor) {
			return Outcome{}, ErrNotYourTurn
		}
	case ActionMarkInTransit:
		if snap.Status != StatusConfirmed || actor.Role != shared.RoleSeller {
			return Outcome{}, ErrActionUnavailable
		}
	case ActionConfirmReceipt:
		if snap.Status != StatusInTransit || actor.Role != shared.RoleBuyer {
			return Outcome{}, ErrActionUnavailable
		}
	default:
		return Outcome{}, ErrActionUnavailable
	}

	switch action {
	case ActionAccept:
		if snap.Proposed == nil {
			return Outcome{}, ErrMissingProposal
		}
		confirmed := *snap.Proposed
		return Outcome{
			Status:         StatusConfirmed,
			Confirmed:      &confirmed,
			TimelineAction: EventConfirmed,
			NotifyRoles:    []shared.CompanyRole{actor.Role.Counterpart()},
		}, nil

	case ActionCounterPropose:
		if in.Proposal == nil {
			return Outcome{}, ErrMissingProposal
		}
		if err := ValidateProposal(*in.Proposal, now); err != nil {
			return Outcome{}, err
		}
		other := actor.Role.Counterpart()
		proposed := *in.Proposal
		out := Outcome{
			Status:         AwaitingRole(other),
			BallWith:       &other,
			Proposed:       &proposed,
			CounterReason:  strings.TrimSpace(in.Reason),
			TimelineAction: EventProposedNewDate,
			NotifyRoles:    []shared.CompanyRole{other},
		}
		if snap.Proposed != nil {
			prev := *snap.Proposed
			out.PreviousProposal = &prev
		}
		return out, nil

	case ActionCancel:
		reason := strings.TrimSpace(in.Reason)
		if len([]rune(reason)) < MinReasonLength {
			return Outcome{}, ErrReasonTooShort
		}
		cancelledAt := now
		return Outcome{
			Status:         StatusCancelled,
			CancelReason:   reason,
			CancelledAt:    &cancelledAt,
			TimelineAction: EventCancelled,
			NotifyRoles:    []shared.CompanyRole{actor.Role.Counterpart()},
		}, nil

	case ActionMarkInTransit:
		if snap.Confirmed == nil {
			return Outcome{}, ErrActionUnavailable
		}
		if AfterDay(snap.Confirmed.Date, now) {
			return Outcome{}, ErrNotDeliveryDay
		}
		return Outcome{
			Status:         StatusInTransit,
			TimelineAction: EventInTransit,
			NotifyRoles:    []shared.CompanyRole{shared.RoleBuyer},
		}, nil

	case ActionConfirmReceipt:
		completedAt := now
		return Outcome{
			Status:         StatusDelivered,
			CompletedAt:    &completedAt,
			ReceiptNotes:   strings.TrimSpace(in.ReceiptNotes),
			TimelineAction: EventDelivered,
			NotifyRoles:    []shared.CompanyRole{shared.RoleSeller},
		}, nil
	}

	return Outcome{}, ErrActionUnavailable
}
