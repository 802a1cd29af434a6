package delivery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloseduardonl/nf-ship-flow/internal/companies"
	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
	"github.com/carloseduardonl/nf-ship-flow/internal/notifications"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
	"github.com/carloseduardonl/nf-ship-flow/internal/timeline"
)

var (
	sellerCompanyID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	buyerCompanyID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")

	sellerProfile = shared.Profile{
		UserID:      uuid.MustParse("aaaaaaaa-1111-1111-1111-111111111111"),
		CompanyID:   sellerCompanyID,
		CompanyRole: shared.RoleSeller,
		FullName:    "Carlos Mendes",
	}
	buyerProfile = shared.Profile{
		UserID:      uuid.MustParse("bbbbbbbb-1111-1111-1111-111111111111"),
		CompanyID:   buyerCompanyID,
		CompanyRole: shared.RoleBuyer,
		FullName:    "Renata Lima",
	}

	testNow = time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
)

// ============================================================================
// FAKES
// ============================================================================

type fakeRepo struct {
	items map[uuid.UUID]Delivery
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[uuid.UUID]Delivery{}}
}

func (r *fakeRepo) Create(_ context.Context, d Delivery) (Delivery, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = testNow
	d.UpdatedAt = testNow
	r.items[d.ID] = d
	return d, nil
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (Delivery, error) {
	d, ok := r.items[id]
	if !ok {
		return Delivery{}, ErrNotFound
	}
	return d, nil
}

func (r *fakeRepo) List(_ context.Context, companyID uuid.UUID, _ ListFilters) ([]Delivery, int, error) {
	var out []Delivery
	for _, d := range r.items {
		if d.SellerCompanyID == companyID || d.BuyerCompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) ListForDashboard(ctx context.Context, companyID uuid.UUID) ([]Delivery, error) {
	items, _, err := r.List(ctx, companyID, ListFilters{})
	return items, err
}

// UpdateNegotiation mirrors the conditional SQL update: the write applies
// only when the stored row still matches the expected status and turn.
func (r *fakeRepo) UpdateNegotiation(_ context.Context, d Delivery, expectedStatus negotiation.Status, expectedBallWith *shared.CompanyRole) error {
	current, ok := r.items[d.ID]
	if !ok {
		return ErrStaleState
	}
	if current.Status != expectedStatus || !rolesEqual(current.BallWith, expectedBallWith) {
		return ErrStaleState
	}
	d.UpdatedAt = testNow
	r.items[d.ID] = d
	return nil
}

func rolesEqual(a, b *shared.CompanyRole) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fakeDirectory struct{}

func (fakeDirectory) Get(_ context.Context, id uuid.UUID) (companies.Company, error) {
	switch id {
	case buyerCompanyID:
		return companies.Company{ID: id, Name: "Supermercados Horizonte SA", Role: shared.RoleBuyer}, nil
	case sellerCompanyID:
		return companies.Company{ID: id, Name: "Distribuidora Aurora Ltda", Role: shared.RoleSeller}, nil
	default:
		return companies.Company{}, companies.ErrNotFound
	}
}

type fakeTimeline struct {
	entries []timeline.Entry
	fail    bool
}

func (f *fakeTimeline) Append(_ context.Context, e timeline.Entry) error {
	if f.fail {
		return errors.New("timeline down")
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeTimeline) List(_ context.Context, deliveryID uuid.UUID) ([]timeline.Entry, error) {
	var out []timeline.Entry
	for _, e := range f.entries {
		if e.DeliveryID == deliveryID {
			out = append(out, e)
		}
	}
	return out, nil
}

type notified struct {
	companyID uuid.UUID
	draft     notifications.Draft
}

type fakeNotifier struct {
	calls []notified
}

func (f *fakeNotifier) NotifyCompany(_ context.Context, companyID uuid.UUID, draft notifications.Draft) error {
	f.calls = append(f.calls, notified{companyID: companyID, draft: draft})
	return nil
}

type fakePublisher struct {
	deliveries int
	timelines  int
}

func (f *fakePublisher) PublishDelivery(context.Context, uuid.UUID) error {
	f.deliveries++
	return nil
}

func (f *fakePublisher) PublishTimeline(context.Context, uuid.UUID) error {
	f.timelines++
	return nil
}

type harness struct {
	service   *Service
	repo      *fakeRepo
	timeline  *fakeTimeline
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:      newFakeRepo(),
		timeline:  &fakeTimeline{},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	h.service = NewService(slog.Default(), h.repo, fakeDirectory{}, h.timeline, h.notifier, h.publisher, nil)
	h.service.now = func() time.Time { return testNow }
	return h
}

func validCreateRequest() CreateDeliveryRequest {
	return CreateDeliveryRequest{
		BuyerCompanyID:    buyerCompanyID.String(),
		NFNumber:          "45821",
		NFDate:            testNow.Format("2006-01-02"),
		NFValue:           15890.50,
		Street:            "Av. das Nações",
		Number:            "1200",
		Neighborhood:      "Centro",
		City:              "Campinas",
		State:             "SP",
		PostalCode:        "13010-000",
		ProposedDate:      testNow.AddDate(0, 0, 1).Format("2006-01-02"),
		ProposedTimeStart: "09:00",
		ProposedTimeEnd:   "10:00",
		InternalNotes:     "margem apertada nesse pedido",
	}
}

// ============================================================================
// CREATE
// ============================================================================

func TestCreateOpensAwaitingBuyer(t *testing.T) {
	h := newHarness(t)

	d, err := h.service.Create(context.Background(), sellerProfile, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, negotiation.StatusAwaitingBuyer, d.Status)
	require.NotNil(t, d.BallWith)
	assert.Equal(t, shared.RoleBuyer, *d.BallWith)
	require.NotNil(t, d.Proposed)
	assert.Nil(t, d.Confirmed)

	require.Len(t, h.timeline.entries, 1)
	assert.Equal(t, negotiation.EventCreated, h.timeline.entries[0].Action)

	require.Len(t, h.notifier.calls, 1)
	assert.Equal(t, buyerCompanyID, h.notifier.calls[0].companyID)
	assert.Equal(t, notifications.TypeBallWithYou, h.notifier.calls[0].draft.Type)

	assert.Equal(t, 1, h.publisher.deliveries)
	assert.Equal(t, 1, h.publisher.timelines)
}

func TestCreateGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.Create(ctx, buyerProfile, validCreateRequest())
	assert.ErrorIs(t, err, ErrNotSeller)

	req := validCreateRequest()
	req.BuyerCompanyID = sellerCompanyID.String()
	_, err = h.service.Create(ctx, sellerProfile, req)
	assert.ErrorIs(t, err, ErrSameParty)

	req = validCreateRequest()
	req.NFDate = testNow.AddDate(0, 0, 1).Format("2006-01-02")
	_, err = h.service.Create(ctx, sellerProfile, req)
	assert.ErrorIs(t, err, ErrNFDateInFuture)

	req = validCreateRequest()
	req.ProposedDate = testNow.AddDate(0, 0, -1).Format("2006-01-02")
	_, err = h.service.Create(ctx, sellerProfile, req)
	assert.ErrorIs(t, err, negotiation.ErrPastDate)

	req = validCreateRequest()
	req.ProposedTimeEnd = "09:30"
	_, err = h.service.Create(ctx, sellerProfile, req)
	assert.ErrorIs(t, err, negotiation.ErrWindowTooShort)

	// No guard failure leaves side effects behind.
	assert.Empty(t, h.timeline.entries)
	assert.Empty(t, h.notifier.calls)
}

// ============================================================================
// TRANSITIONS
// ============================================================================

func TestScenarioAcceptFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)

	updated, err := h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionAccept, negotiation.Input{})
	require.NoError(t, err)

	assert.Equal(t, negotiation.StatusConfirmed, updated.Status)
	assert.Nil(t, updated.BallWith)
	require.NotNil(t, updated.Confirmed)
	assert.Equal(t, *d.Proposed, *updated.Confirmed)

	// One CREATED plus one CONFIRMED entry.
	require.Len(t, h.timeline.entries, 2)
	assert.Equal(t, negotiation.EventConfirmed, h.timeline.entries[1].Action)

	// The accepting company receives nothing; the seller is told.
	require.Len(t, h.notifier.calls, 2)
	accept := h.notifier.calls[1]
	assert.Equal(t, sellerCompanyID, accept.companyID)
	assert.Equal(t, notifications.TypeDeliveryConfirmed, accept.draft.Type)
}

func TestScenarioCounterProposalChain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)
	initial := *d.Proposed

	counter := negotiation.Proposal{
		Date:  testNow.AddDate(0, 0, 3),
		Start: negotiation.TimeOfDay{Hour: 14},
		End:   negotiation.TimeOfDay{Hour: 16},
	}
	afterCounter, err := h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionCounterPropose,
		negotiation.Input{Proposal: &counter, Reason: "caminhão em manutenção"})
	require.NoError(t, err)

	assert.Equal(t, negotiation.StatusAwaitingSeller, afterCounter.Status)
	require.NotNil(t, afterCounter.BallWith)
	assert.Equal(t, shared.RoleSeller, *afterCounter.BallWith)
	assert.Equal(t, counter, *afterCounter.Proposed)

	// The counter-proposal entry records the before/after windows and keeps
	// the stated reason in the description.
	entry := h.timeline.entries[1]
	assert.Equal(t, negotiation.EventProposedNewDate, entry.Action)
	assert.Equal(t, "Renata Lima sugeriu nova data: 31/08/2026 14:00-16:00 (caminhão em manutenção)", entry.Description)
	assert.Equal(t, initial.Date.Format("2006-01-02"), entry.OldData["proposed_date"])
	assert.Equal(t, counter.Date.Format("2006-01-02"), entry.NewData["proposed_date"])

	// Seller accepts the buyer's counter.
	final, err := h.service.Transition(ctx, sellerProfile, d.ID, negotiation.ActionAccept, negotiation.Input{})
	require.NoError(t, err)
	assert.Equal(t, negotiation.StatusConfirmed, final.Status)
	assert.Equal(t, counter, *final.Confirmed)
}

func TestScenarioCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)

	_, err = h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionCancel, negotiation.Input{Reason: "ok"})
	assert.ErrorIs(t, err, negotiation.ErrReasonTooShort)

	final, err := h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionCancel, negotiation.Input{Reason: "Cliente fechado hoje"})
	require.NoError(t, err)
	assert.Equal(t, negotiation.StatusCancelled, final.Status)
	assert.Nil(t, final.BallWith)
	assert.Equal(t, "Cliente fechado hoje", final.CancellationReason)
	require.NotNil(t, final.CancelledAt)

	cancel := h.notifier.calls[len(h.notifier.calls)-1]
	assert.Equal(t, sellerCompanyID, cancel.companyID)
	assert.Equal(t, notifications.TypeDeliveryCancelled, cancel.draft.Type)
}

func TestScenarioTransitAndReceipt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := validCreateRequest()
	req.ProposedDate = testNow.Format("2006-01-02")
	d, err := h.service.Create(ctx, sellerProfile, req)
	require.NoError(t, err)

	_, err = h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionAccept, negotiation.Input{})
	require.NoError(t, err)

	inTransit, err := h.service.Transition(ctx, sellerProfile, d.ID, negotiation.ActionMarkInTransit, negotiation.Input{})
	require.NoError(t, err)
	assert.Equal(t, negotiation.StatusInTransit, inTransit.Status)

	delivered, err := h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionConfirmReceipt, negotiation.Input{ReceiptNotes: "sem avarias"})
	require.NoError(t, err)
	assert.Equal(t, negotiation.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.CompletedAt)
	assert.Equal(t, "sem avarias", delivered.ReceiptNotes)

	last := h.notifier.calls[len(h.notifier.calls)-1]
	assert.Equal(t, sellerCompanyID, last.companyID)
	assert.Equal(t, notifications.TypeDeliveryCompleted, last.draft.Type)
}

func TestRejectedActionLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)
	entriesBefore := len(h.timeline.entries)
	notifiedBefore := len(h.notifier.calls)

	// Seller acts out of turn.
	_, err = h.service.Transition(ctx, sellerProfile, d.ID, negotiation.ActionAccept, negotiation.Input{})
	assert.ErrorIs(t, err, negotiation.ErrNotYourTurn)

	stored, err := h.repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.StatusAwaitingBuyer, stored.Status)
	assert.Len(t, h.timeline.entries, entriesBefore)
	assert.Len(t, h.notifier.calls, notifiedBefore)
}

func TestStaleWriteConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)

	// A concurrent accept commits between this caller's read and write.
	_, err = h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionAccept, negotiation.Input{})
	require.NoError(t, err)

	stale := negotiation.Proposal{
		Date:  testNow.AddDate(0, 0, 5),
		Start: negotiation.TimeOfDay{Hour: 9},
		End:   negotiation.TimeOfDay{Hour: 11},
	}
	current, err := h.repo.Get(ctx, d.ID)
	require.NoError(t, err)
	ball := shared.RoleBuyer
	current.Status = negotiation.StatusAwaitingBuyer
	current.BallWith = &ball
	err = h.repo.UpdateNegotiation(ctx, applyOutcome(current, negotiation.Outcome{
		Status:   negotiation.StatusAwaitingSeller,
		Proposed: &stale,
	}), negotiation.StatusAwaitingBuyer, &ball)
	assert.ErrorIs(t, err, ErrStaleState)
}

func TestTimelineFailureDoesNotFailTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)

	h.timeline.fail = true
	updated, err := h.service.Transition(ctx, buyerProfile, d.ID, negotiation.ActionAccept, negotiation.Input{})
	require.NoError(t, err)
	assert.Equal(t, negotiation.StatusConfirmed, updated.Status)

	// The notification fan-out still ran.
	last := h.notifier.calls[len(h.notifier.calls)-1]
	assert.Equal(t, notifications.TypeDeliveryConfirmed, last.draft.Type)
}

// ============================================================================
// VIEWS
// ============================================================================

func TestInternalNotesHiddenFromBuyer(t *testing.T) {
	h := newHarness(t)

	d, err := h.service.Create(context.Background(), sellerProfile, validCreateRequest())
	require.NoError(t, err)

	sellerView := NewResponse(d, sellerProfile, testNow)
	buyerView := NewResponse(d, buyerProfile, testNow)

	assert.Equal(t, "margem apertada nesse pedido", sellerView.InternalNotes)
	assert.Empty(t, buyerView.InternalNotes)
}

func TestBucketsPartitionByTurn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)

	req := validCreateRequest()
	req.NFNumber = "45822"
	second, err := h.service.Create(ctx, sellerProfile, req)
	require.NoError(t, err)
	_, err = h.service.Transition(ctx, buyerProfile, second.ID, negotiation.ActionAccept, negotiation.Input{})
	require.NoError(t, err)

	buyerBuckets, err := h.service.Buckets(ctx, buyerProfile)
	require.NoError(t, err)
	require.Len(t, buyerBuckets.YourTurn, 1)
	assert.Equal(t, first.ID, buyerBuckets.YourTurn[0].ID)
	assert.Len(t, buyerBuckets.Confirmed, 1)
	assert.Empty(t, buyerBuckets.Waiting)

	sellerBuckets, err := h.service.Buckets(ctx, sellerProfile)
	require.NoError(t, err)
	assert.Empty(t, sellerBuckets.YourTurn)
	require.Len(t, sellerBuckets.Waiting, 1)
	assert.Equal(t, first.ID, sellerBuckets.Waiting[0].ID)
}

func TestGetInvisibleToStrangers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.service.Create(ctx, sellerProfile, validCreateRequest())
	require.NoError(t, err)

	stranger := shared.Profile{
		UserID:      uuid.New(),
		CompanyID:   uuid.New(),
		CompanyRole: shared.RoleBuyer,
	}
	_, err = h.service.Get(ctx, stranger, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
