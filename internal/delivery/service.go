package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/companies"
	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
	"github.com/carloseduardonl/nf-ship-flow/internal/notifications"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
	"github.com/carloseduardonl/nf-ship-flow/internal/timeline"
)

// Dashboard bucket caps. Terminal buckets only show the most recent rows.
const (
	completedBucketCap = 10
	cancelledBucketCap = 5
)

// CompanyDirectory resolves counterpart companies at creation time.
type CompanyDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (companies.Company, error)
}

// TimelineLog appends and reads the per-delivery history.
type TimelineLog interface {
	Append(ctx context.Context, e timeline.Entry) error
	List(ctx context.Context, deliveryID uuid.UUID) ([]timeline.Entry, error)
}

// Notifier fans a draft out to the users of one company.
type Notifier interface {
	NotifyCompany(ctx context.Context, companyID uuid.UUID, draft notifications.Draft) error
}

// ChangePublisher cues realtime listeners after successful writes.
type ChangePublisher interface {
	PublishDelivery(ctx context.Context, deliveryID uuid.UUID) error
	PublishTimeline(ctx context.Context, deliveryID uuid.UUID) error
}

// TransitionRecorder counts accepted transitions for the metrics endpoint.
type TransitionRecorder interface {
	RecordTransition(action string)
}

// Service orchestrates delivery creation and negotiation transitions. The
// delivery row is the source of truth: once its conditional update commits,
// timeline and notification writes follow independently and their failures
// are logged, never rolled back.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	directory CompanyDirectory
	timeline  TimelineLog
	notifier  Notifier
	publisher ChangePublisher
	recorder  TransitionRecorder
	now       func() time.Time
}

// NewService constructs the delivery service. notifier, publisher and
// recorder may be nil.
func NewService(
	logger *slog.Logger,
	repo Repository,
	directory CompanyDirectory,
	tl TimelineLog,
	notifier Notifier,
	publisher ChangePublisher,
	recorder TransitionRecorder,
) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		directory: directory,
		timeline:  tl,
		notifier:  notifier,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Create registers a delivery with the seller's initial window offer. The
// negotiation always opens waiting on the buyer.
func (s *Service) Create(ctx context.Context, actor shared.Profile, req CreateDeliveryRequest) (Delivery, error) {
	if actor.CompanyRole != shared.RoleSeller {
		return Delivery{}, ErrNotSeller
	}

	buyerID, err := uuid.Parse(req.BuyerCompanyID)
	if err != nil {
		return Delivery{}, fmt.Errorf("parse buyer_company_id: %w", err)
	}
	if buyerID == actor.CompanyID {
		return Delivery{}, ErrSameParty
	}
	buyer, err := s.directory.Get(ctx, buyerID)
	if err != nil {
		return Delivery{}, err
	}
	if buyer.Role != shared.RoleBuyer {
		return Delivery{}, ErrInvalidCounterpart
	}

	now := s.now()
	nfDate, err := time.Parse("2006-01-02", req.NFDate)
	if err != nil {
		return Delivery{}, fmt.Errorf("parse nf_date: %w", err)
	}
	if negotiation.AfterDay(nfDate, now) {
		return Delivery{}, ErrNFDateInFuture
	}

	proposal, err := parseProposal(req.ProposedDate, req.ProposedTimeStart, req.ProposedTimeEnd)
	if err != nil {
		return Delivery{}, err
	}
	if err := negotiation.ValidateProposal(proposal, now); err != nil {
		return Delivery{}, err
	}

	ball := shared.RoleBuyer
	d, err := s.repo.Create(ctx, Delivery{
		SellerCompanyID: actor.CompanyID,
		BuyerCompanyID:  buyerID,
		CreatedBy:       actor.UserID,
		NFNumber:        req.NFNumber,
		NFSeries:        req.NFSeries,
		NFDate:          nfDate,
		NFValue:         req.NFValue,
		SourceDocument:  req.SourceDocument,
		Address: Address{
			Street:       req.Street,
			Number:       req.Number,
			Complement:   req.Complement,
			Neighborhood: req.Neighborhood,
			City:         req.City,
			State:        req.State,
			PostalCode:   req.PostalCode,
		},
		Status:        negotiation.StatusAwaitingBuyer,
		BallWith:      &ball,
		Proposed:      &proposal,
		Notes:         req.Notes,
		InternalNotes: req.InternalNotes,
	})
	if err != nil {
		return Delivery{}, err
	}

	s.appendTimeline(ctx, timeline.Entry{
		DeliveryID: d.ID,
		Action:     negotiation.EventCreated,
		Description: fmt.Sprintf("%s criou a entrega da NF %s (%s) com proposta para %s %s-%s",
			actor.FullName, d.NFNumber, shared.FormatBRL(d.NFValue),
			shared.FormatDateBR(proposal.Date), proposal.Start, proposal.End),
		UserID: &actor.UserID,
	})
	s.notifyCompany(ctx, d.BuyerCompanyID, notifications.Draft{
		DeliveryID: &d.ID,
		Type:       notifications.TypeBallWithYou,
		Title:      "Nova entrega aguardando confirmação",
		Message: fmt.Sprintf("%s propôs %s %s-%s para a NF %s",
			actor.FullName, shared.FormatDateBR(proposal.Date), proposal.Start, proposal.End, d.NFNumber),
	})
	s.publishChanges(ctx, d.ID)
	s.record(string(negotiation.EventCreated))
	return d, nil
}

// Get returns a delivery visible to the caller. Non-parties see nothing.
func (s *Service) Get(ctx context.Context, viewer shared.Profile, id uuid.UUID) (Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Delivery{}, err
	}
	if _, ok := d.RoleOf(viewer.CompanyID); !ok {
		return Delivery{}, ErrNotFound
	}
	return d, nil
}

// List returns the caller company's deliveries plus pagination metadata.
func (s *Service) List(ctx context.Context, viewer shared.Profile, f ListFilters) ([]Delivery, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, viewer.CompanyID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// Buckets partitions the company's deliveries for the dashboard: the
// caller's pending turn first, then waiting-on-counterpart, confirmed
// (soonest window first), in transit, and capped terminal lists.
func (s *Service) Buckets(ctx context.Context, viewer shared.Profile) (Buckets, error) {
	items, err := s.repo.ListForDashboard(ctx, viewer.CompanyID)
	if err != nil {
		return Buckets{}, err
	}

	now := s.now()
	b := Buckets{
		YourTurn:  []Response{},
		Waiting:   []Response{},
		Confirmed: []Response{},
		InTransit: []Response{},
		Completed: []Response{},
		Cancelled: []Response{},
	}
	for _, d := range items {
		resp := NewResponse(d, viewer, now)
		switch {
		case d.Status.Negotiating() && resp.IsMyTurn:
			b.YourTurn = append(b.YourTurn, resp)
		case d.Status.Negotiating():
			b.Waiting = append(b.Waiting, resp)
		case d.Status == negotiation.StatusConfirmed:
			b.Confirmed = append(b.Confirmed, resp)
		case d.Status == negotiation.StatusInTransit:
			b.InTransit = append(b.InTransit, resp)
		case d.Status == negotiation.StatusDelivered:
			if len(b.Completed) < completedBucketCap {
				b.Completed = append(b.Completed, resp)
			}
		case d.Status == negotiation.StatusCancelled:
			if len(b.Cancelled) < cancelledBucketCap {
				b.Cancelled = append(b.Cancelled, resp)
			}
		}
	}
	sortConfirmedAscending(b.Confirmed)
	return b, nil
}

// Actions returns the projector output for the caller.
func (s *Service) Actions(ctx context.Context, viewer shared.Profile, id uuid.UUID) (ActionsResponse, error) {
	d, err := s.Get(ctx, viewer, id)
	if err != nil {
		return ActionsResponse{}, err
	}
	role, _ := d.RoleOf(viewer.CompanyID)
	actor := negotiation.Actor{CompanyID: viewer.CompanyID, Role: role}
	actions := negotiation.AvailableActions(d.Snapshot(), actor, s.now())
	if actions == nil {
		actions = []negotiation.Action{}
	}
	return ActionsResponse{
		IsMyTurn:         negotiation.IsTurn(d.Snapshot(), actor),
		AvailableActions: actions,
	}, nil
}

// Timeline lists the delivery history, oldest first.
func (s *Service) Timeline(ctx context.Context, viewer shared.Profile, id uuid.UUID) ([]timeline.Entry, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return nil, err
	}
	return s.timeline.List(ctx, id)
}

// Transition applies one negotiation action on behalf of the caller. A
// rejected action leaves the delivery untouched and appends nothing.
func (s *Service) Transition(ctx context.Context, actor shared.Profile, id uuid.UUID, action negotiation.Action, in negotiation.Input) (Delivery, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return Delivery{}, err
	}
	role, _ := d.RoleOf(actor.CompanyID)

	out, err := negotiation.Transition(d.Snapshot(), negotiation.Actor{CompanyID: actor.CompanyID, Role: role}, action, in, s.now())
	if err != nil {
		return Delivery{}, err
	}

	updated := applyOutcome(d, out)
	if err := s.repo.UpdateNegotiation(ctx, updated, d.Status, d.BallWith); err != nil {
		return Delivery{}, err
	}

	entry := transitionEntry(d, updated, out, actor)
	s.appendTimeline(ctx, entry)
	for _, roleToNotify := range out.NotifyRoles {
		s.notifyCompany(ctx, d.CompanyOf(roleToNotify), transitionDraft(updated, out, actor))
	}
	s.publishChanges(ctx, d.ID)
	s.record(string(action))
	return updated, nil
}

// transitionEntry composes the human-readable history row for an accepted
// transition, with before/after snapshots on proposal changes.
func transitionEntry(before, after Delivery, out negotiation.Outcome, actor shared.Profile) timeline.Entry {
	e := timeline.Entry{
		DeliveryID: before.ID,
		Action:     out.TimelineAction,
		UserID:     &actor.UserID,
	}
	switch out.TimelineAction {
	case negotiation.EventConfirmed:
		e.Description = fmt.Sprintf("%s confirmou a data de entrega", actor.FullName)
	case negotiation.EventProposedNewDate:
		p := *after.Proposed
		e.Description = fmt.Sprintf("%s sugeriu nova data: %s %s-%s",
			actor.FullName, shared.FormatDateBR(p.Date), p.Start, p.End)
		if out.CounterReason != "" {
			e.Description += " (" + out.CounterReason + ")"
		}
		e.NewData = proposalSnapshot(p)
		if out.PreviousProposal != nil {
			e.OldData = proposalSnapshot(*out.PreviousProposal)
		}
	case negotiation.EventCancelled:
		e.Description = fmt.Sprintf("%s cancelou a entrega: %s", actor.FullName, out.CancelReason)
	case negotiation.EventInTransit:
		e.Description = fmt.Sprintf("%s marcou a entrega como em trânsito", actor.FullName)
	case negotiation.EventDelivered:
		e.Description = fmt.Sprintf("%s confirmou o recebimento", actor.FullName)
		if out.ReceiptNotes != "" {
			e.NewData = map[string]any{"receipt_notes": out.ReceiptNotes}
		}
	}
	return e
}

// transitionDraft composes the notification sent to the counterpart users.
func transitionDraft(d Delivery, out negotiation.Outcome, actor shared.Profile) notifications.Draft {
	draft := notifications.Draft{DeliveryID: &d.ID}
	switch out.TimelineAction {
	case negotiation.EventConfirmed:
		p := *d.Confirmed
		draft.Type = notifications.TypeDeliveryConfirmed
		draft.Title = "Data confirmada"
		draft.Message = fmt.Sprintf("%s confirmou %s %s-%s para a NF %s",
			actor.FullName, shared.FormatDateBR(p.Date), p.Start, p.End, d.NFNumber)
	case negotiation.EventProposedNewDate:
		p := *d.Proposed
		draft.Type = notifications.TypeBallWithYou
		draft.Title = "Nova data proposta"
		draft.Message = fmt.Sprintf("%s sugeriu %s %s-%s",
			actor.FullName, shared.FormatDateBR(p.Date), p.Start, p.End)
	case negotiation.EventCancelled:
		draft.Type = notifications.TypeDeliveryCancelled
		draft.Title = "Entrega cancelada"
		draft.Message = fmt.Sprintf("%s cancelou a entrega NF %s", actor.FullName, d.NFNumber)
	case negotiation.EventInTransit:
		draft.Type = notifications.TypeDeliveryInTransit
		draft.Title = "Entrega em trânsito"
		draft.Message = fmt.Sprintf("A entrega da NF %s está a caminho", d.NFNumber)
	case negotiation.EventDelivered:
		draft.Type = notifications.TypeDeliveryCompleted
		draft.Title = "Recebimento confirmado"
		draft.Message = fmt.Sprintf("%s confirmou o recebimento da NF %s", actor.FullName, d.NFNumber)
	}
	return draft
}

func proposalSnapshot(p negotiation.Proposal) map[string]any {
	return map[string]any{
		"proposed_date":       p.Date.Format("2006-01-02"),
		"proposed_time_start": p.Start.String(),
		"proposed_time_end":   p.End.String(),
	}
}

func (s *Service) appendTimeline(ctx context.Context, e timeline.Entry) {
	if err := s.timeline.Append(ctx, e); err != nil {
		s.logger.Error("append timeline entry",
			slog.Any("error", err),
			slog.String("delivery_id", e.DeliveryID.String()),
			slog.String("action", e.Action))
	}
}

func (s *Service) notifyCompany(ctx context.Context, companyID uuid.UUID, draft notifications.Draft) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyCompany(ctx, companyID, draft); err != nil {
		s.logger.Error("notify company",
			slog.Any("error", err),
			slog.String("company_id", companyID.String()),
			slog.String("type", draft.Type))
	}
}

func (s *Service) publishChanges(ctx context.Context, deliveryID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDelivery(ctx, deliveryID); err != nil {
		s.logger.Warn("publish delivery change", slog.Any("error", err))
	}
	if err := s.publisher.PublishTimeline(ctx, deliveryID); err != nil {
		s.logger.Warn("publish timeline change", slog.Any("error", err))
	}
}

func (s *Service) record(action string) {
	if s.recorder != nil {
		s.recorder.RecordTransition(action)
	}
}

// sortConfirmedAscending orders the confirmed bucket by delivery window,
// soonest first.
func sortConfirmedAscending(items []Response) {
	sort.SliceStable(items, func(i, j int) bool {
		return confirmedKey(items[i]) < confirmedKey(items[j])
	})
}

func confirmedKey(r Response) string {
	if r.ConfirmedDate == nil {
		return "9999-99-99"
	}
	key := *r.ConfirmedDate
	if r.ConfirmedTimeStart != nil {
		key += " " + *r.ConfirmedTimeStart
	}
	return key
}
