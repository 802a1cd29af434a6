package negotiation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

var (
	sellerID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	buyerID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")

	sellerActor = Actor{CompanyID: sellerID, Role: shared.RoleSeller}
	buyerActor  = Actor{CompanyID: buyerID, Role: shared.RoleBuyer}

	testNow = time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
)

func proposalAt(daysAhead int, start, end string) Proposal {
	s, _ := ParseTimeOfDay(start)
	e, _ := ParseTimeOfDay(end)
	return Proposal{Date: testNow.AddDate(0, 0, daysAhead), Start: s, End: e}
}

func awaitingBuyerSnap() Snapshot {
	ball := shared.RoleBuyer
	p := proposalAt(1, "09:00", "10:00")
	return Snapshot{
		Status:          StatusAwaitingBuyer,
		BallWith:        &ball,
		SellerCompanyID: sellerID,
		BuyerCompanyID:  buyerID,
		Proposed:        &p,
	}
}

func TestAcceptCopiesProposalIntoConfirmed(t *testing.T) {
	snap := awaitingBuyerSnap()

	out, err := Transition(snap, buyerActor, ActionAccept, Input{}, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, out.Status)
	assert.Nil(t, out.BallWith)
	require.NotNil(t, out.Confirmed)
	assert.Equal(t, *snap.Proposed, *out.Confirmed)
	assert.Equal(t, EventConfirmed, out.TimelineAction)
	assert.Equal(t, []shared.CompanyRole{shared.RoleSeller}, out.NotifyRoles)
}

func TestAcceptOutOfTurnRejected(t *testing.T) {
	snap := awaitingBuyerSnap()

	_, err := Transition(snap, sellerActor, ActionAccept, Input{}, testNow)
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestAcceptByStrangerRejected(t *testing.T) {
	snap := awaitingBuyerSnap()
	stranger := Actor{CompanyID: uuid.New(), Role: shared.RoleBuyer}

	_, err := Transition(snap, stranger, ActionAccept, Input{}, testNow)
	assert.ErrorIs(t, err, ErrActionUnavailable)
}

func TestCounterProposePassesTurn(t *testing.T) {
	snap := awaitingBuyerSnap()
	counter := proposalAt(3, "14:00", "16:00")

	out, err := Transition(snap, buyerActor, ActionCounterPropose, Input{Proposal: &counter}, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingSeller, out.Status)
	require.NotNil(t, out.BallWith)
	assert.Equal(t, shared.RoleSeller, *out.BallWith)
	require.NotNil(t, out.Proposed)
	assert.Equal(t, counter, *out.Proposed)
	require.NotNil(t, out.PreviousProposal)
	assert.Equal(t, *snap.Proposed, *out.PreviousProposal)
	assert.Equal(t, EventProposedNewDate, out.TimelineAction)
	assert.Equal(t, []shared.CompanyRole{shared.RoleSeller}, out.NotifyRoles)
}

func TestCounterProposeGuards(t *testing.T) {
	snap := awaitingBuyerSnap()

	tests := []struct {
		name     string
		proposal Proposal
		want     error
	}{
		{"past date", proposalAt(-1, "09:00", "10:00"), ErrPastDate},
		{"end before start", proposalAt(2, "10:00", "09:00"), ErrWindowOrder},
		{"end equals start", proposalAt(2, "09:00", "09:00"), ErrWindowOrder},
		{"window under an hour", proposalAt(2, "09:00", "09:59"), ErrWindowTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.proposal
			_, err := Transition(snap, buyerActor, ActionCounterPropose, Input{Proposal: &p}, testNow)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCounterProposeTodayAllowed(t *testing.T) {
	snap := awaitingBuyerSnap()
	p := proposalAt(0, "15:00", "16:00")

	_, err := Transition(snap, buyerActor, ActionCounterPropose, Input{Proposal: &p}, testNow)
	assert.NoError(t, err)
}

func TestCounterProposeCarriesTrimmedReason(t *testing.T) {
	snap := awaitingBuyerSnap()
	p := proposalAt(2, "14:00", "16:00")

	out, err := Transition(snap, buyerActor, ActionCounterPropose, Input{Proposal: &p, Reason: "  caminhão em manutenção  "}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "caminhão em manutenção", out.CounterReason)
}

func TestDateGuardsIgnoreLocations(t *testing.T) {
	// Wire dates parse to UTC midnight; the server clock may sit in any
	// zone. Only the wall-calendar day of each operand counts.
	saoPaulo := time.FixedZone("America/Sao_Paulo", -3*60*60)
	sydney := time.FixedZone("Australia/Sydney", 10*60*60)

	utcMidnight := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	start, _ := ParseTimeOfDay("14:00")
	end, _ := ParseTimeOfDay("16:00")
	today := Proposal{Date: utcMidnight, Start: start, End: end}

	// 10:00 in São Paulo is 13:00 UTC on the same day: still today.
	westNow := time.Date(2026, 8, 28, 10, 0, 0, 0, saoPaulo)
	assert.NoError(t, ValidateProposal(today, westNow))

	// 02:00 in Sydney on the 28th is still the 27th in UTC; the confirmed
	// day has arrived on the seller's calendar.
	eastNow := time.Date(2026, 8, 28, 2, 0, 0, 0, sydney)
	snap := Snapshot{
		Status:          StatusConfirmed,
		SellerCompanyID: sellerID,
		BuyerCompanyID:  buyerID,
		Confirmed:       &today,
	}
	out, err := Transition(snap, sellerActor, ActionMarkInTransit, Input{}, eastNow)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, out.Status)

	// Yesterday stays rejected regardless of zone.
	past := Proposal{Date: utcMidnight.AddDate(0, 0, -1), Start: start, End: end}
	assert.ErrorIs(t, ValidateProposal(past, westNow), ErrPastDate)
}

func TestExactSixtyMinuteWindowAllowed(t *testing.T) {
	p := proposalAt(1, "09:00", "10:00")
	assert.NoError(t, ValidateProposal(p, testNow))
}

func TestCancelReasonGuard(t *testing.T) {
	snap := awaitingBuyerSnap()

	_, err := Transition(snap, buyerActor, ActionCancel, Input{Reason: "ok"}, testNow)
	assert.ErrorIs(t, err, ErrReasonTooShort)

	// Whitespace padding does not count toward the minimum.
	_, err = Transition(snap, buyerActor, ActionCancel, Input{Reason: "  curto    \n\t  "}, testNow)
	assert.ErrorIs(t, err, ErrReasonTooShort)

	out, err := Transition(snap, buyerActor, ActionCancel, Input{Reason: "Cliente fechado hoje"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Nil(t, out.BallWith)
	assert.Equal(t, "Cliente fechado hoje", out.CancelReason)
	require.NotNil(t, out.CancelledAt)
	assert.Equal(t, []shared.CompanyRole{shared.RoleSeller}, out.NotifyRoles)
}

func TestMarkInTransitRequiresDeliveryDay(t *testing.T) {
	confirmed := proposalAt(1, "09:00", "10:00")
	snap := Snapshot{
		Status:          StatusConfirmed,
		SellerCompanyID: sellerID,
		BuyerCompanyID:  buyerID,
		Confirmed:       &confirmed,
	}

	// Window is tomorrow: not yet.
	_, err := Transition(snap, sellerActor, ActionMarkInTransit, Input{}, testNow)
	assert.ErrorIs(t, err, ErrNotDeliveryDay)

	// Buyer never ships.
	today := proposalAt(0, "09:00", "10:00")
	snap.Confirmed = &today
	_, err = Transition(snap, buyerActor, ActionMarkInTransit, Input{}, testNow)
	assert.ErrorIs(t, err, ErrActionUnavailable)

	out, err := Transition(snap, sellerActor, ActionMarkInTransit, Input{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, out.Status)
	assert.Equal(t, []shared.CompanyRole{shared.RoleBuyer}, out.NotifyRoles)
}

func TestConfirmReceipt(t *testing.T) {
	snap := Snapshot{
		Status:          StatusInTransit,
		SellerCompanyID: sellerID,
		BuyerCompanyID:  buyerID,
	}

	_, err := Transition(snap, sellerActor, ActionConfirmReceipt, Input{}, testNow)
	assert.ErrorIs(t, err, ErrActionUnavailable)

	out, err := Transition(snap, buyerActor, ActionConfirmReceipt, Input{ReceiptNotes: "  tudo certo  "}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, out.Status)
	assert.Nil(t, out.BallWith)
	require.NotNil(t, out.CompletedAt)
	assert.Equal(t, "tudo certo", out.ReceiptNotes)
	assert.Equal(t, []shared.CompanyRole{shared.RoleSeller}, out.NotifyRoles)
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	for _, status := range []Status{StatusDelivered, StatusCancelled} {
		snap := Snapshot{
			Status:          status,
			SellerCompanyID: sellerID,
			BuyerCompanyID:  buyerID,
		}
		for _, action := range []Action{ActionAccept, ActionCounterPropose, ActionCancel, ActionMarkInTransit, ActionConfirmReceipt} {
			_, err := Transition(snap, sellerActor, action, Input{}, testNow)
			assert.Error(t, err, "status %s action %s", status, action)
			_, err = Transition(snap, buyerActor, action, Input{}, testNow)
			assert.Error(t, err, "status %s action %s", status, action)
		}
	}
}

func TestBallWithMatchesNegotiatingStatuses(t *testing.T) {
	snap := awaitingBuyerSnap()
	counter := proposalAt(2, "08:00", "12:00")

	// Every accepted transition keeps the invariant: ball_with is non-nil
	// exactly while the status negotiates.
	out, err := Transition(snap, buyerActor, ActionCounterPropose, Input{Proposal: &counter}, testNow)
	require.NoError(t, err)
	assert.True(t, out.Status.Negotiating())
	require.NotNil(t, out.BallWith)

	accepted, err := Transition(Snapshot{
		Status:          out.Status,
		BallWith:        out.BallWith,
		SellerCompanyID: sellerID,
		BuyerCompanyID:  buyerID,
		Proposed:        out.Proposed,
	}, sellerActor, ActionAccept, Input{}, testNow)
	require.NoError(t, err)
	assert.False(t, accepted.Status.Negotiating())
	assert.Nil(t, accepted.BallWith)
}
