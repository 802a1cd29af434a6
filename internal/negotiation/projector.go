package negotiation

import (
	"time"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// IsTurn reports whether the viewer's company must act next. It holds only
// when ball_with matches the viewer's role and the viewer's company is the
// party registered for that role.
func IsTurn(snap Snapshot, viewer Actor) bool {
	return holdsTurn(snap, viewer)
}

// AvailableActions computes the ordered action set currently offered to the
// viewer. It is a pure projection and is never persisted; each viewer gets
// an independent answer for the same snapshot.
func AvailableActions(snap Snapshot, viewer Actor, now time.Time) []Action {
	if !partyMatches(snap, viewer) {
		return nil
	}

	switch {
	case snap.Status.Negotiating():
		if holdsTurn(snap, viewer) {
			return []Action{ActionAccept, ActionCounterPropose, ActionCancel}
		}
	case snap.Status == StatusConfirmed:
		if viewer.Role == shared.RoleSeller && deliveryDayReached(snap, now) {
			return []Action{ActionMarkInTransit}
		}
	case snap.Status == StatusInTransit:
		if viewer.Role == shared.RoleBuyer {
			return []Action{ActionConfirmReceipt}
		}
	}
	return nil
}

func deliveryDayReached(snap Snapshot, now time.Time) bool {
	return snap.Confirmed != nil && !AfterDay(snap.Confirmed.Date, now)
}
