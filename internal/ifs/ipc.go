//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/logger"
)

// DnD action bits.
const (
	DndActionNone uint32 = 0
	DndActionCopy uint32 = 1
	DndActionMove uint32 = 2
	DndActionAsk  uint32 = 4

	DndAll = DndActionCopy | DndActionMove | DndActionAsk
)

// Role records what a data source has been used for. A source used once
// for a selection can never start a drag, and vice versa.
type Role int

const (
	RoleNone Role = iota
	RoleSelection
	RoleDrag
)

// Shared-state flags.
const (
	offerStateAccepted uint32 = 1 << 0
	offerStateDropped  uint32 = 1 << 1
)

// SharedState is the per-session three-way-negotiation record attached to
// a source: the receiver's advertised action mask and preference, the
// accepted/dropped flags, and the server's current resolution. Every
// offer of a source observes the same instance.
type SharedState struct {
	state             uint32
	receiverActions   uint32
	receiverPreferred uint32
	selectedAction    uint32
}

// Accepted reports the ACCEPTED flag.
func (s *SharedState) Accepted() bool {
	return s.state&offerStateAccepted != 0
}

// Dropped reports the DROPPED flag. DROPPED is monotonic within a session.
func (s *SharedState) Dropped() bool {
	return s.state&offerStateDropped != 0
}

// SelectedAction returns the server's current single-bit resolution.
func (s *SharedState) SelectedAction() uint32 {
	return s.selectedAction
}

// SourceData is the state every data source carries: its offered MIME
// types, its one-shot action mask, the role it has been consumed for, the
// live offers pointing back at it, and the shared negotiation state.
type SourceData struct {
	seat       *WlSeatGlobal
	role       Role
	mimeTypes  []string
	actions    uint32
	actionsSet bool
	offers     []*WlDataOffer
	shared     SharedState
}

// addMimeType records an offered type, insertion-ordered with duplicates
// collapsed.
func (d *SourceData) addMimeType(mime string) {
	for _, m := range d.mimeTypes {
		if m == mime {
			return
		}
	}
	d.mimeTypes = append(d.mimeTypes, mime)
}

// resolveAction computes the single-bit action resolution: the preferred
// action when the masks intersect on it, otherwise the lowest bit of the
// intersection, otherwise none.
func resolveAction(sourceActions, receiverActions, preferred uint32) uint32 {
	actions := sourceActions & receiverActions
	switch {
	case actions&preferred != 0:
		return preferred
	case actions != 0:
		return actions & -actions
	default:
		return DndActionNone
	}
}

// updateSelectedAction recomputes the resolution and, on change, emits
// action to every live offer and to the source itself so all observers
// agree at every instant.
func (s *WlDataSource) updateSelectedAction() {
	if !s.data.actionsSet {
		logger.Error("Source actions not set during action resolution")
		return
	}
	action := resolveAction(s.data.actions, s.data.shared.receiverActions, s.data.shared.receiverPreferred)
	if s.data.shared.selectedAction == action {
		return
	}
	s.data.shared.selectedAction = action
	for _, offer := range s.data.offers {
		offer.SendAction(action)
	}
	s.SendAction(action)
}

// canDrop reports whether a pointer release completes the drag: an action
// has been resolved and the receiver has accepted a type.
func (s *WlDataSource) canDrop() bool {
	return s.data.shared.selectedAction != DndActionNone && s.data.shared.Accepted()
}

// onDrop delivers dnd_drop_performed and latches the DROPPED flag.
func (s *WlDataSource) onDrop() {
	s.SendDndDropPerformed()
	s.data.shared.state |= offerStateDropped
}

// onLeave handles the pointer leaving the receiver before a drop: the
// shared state resets, the source learns the target is gone, and every
// offer is destroyed on its receiver. After a drop the session survives
// focus changes, so leave is suppressed.
func (s *WlDataSource) onLeave() {
	if s.data.shared.Dropped() {
		return
	}
	s.data.shared = SharedState{}
	s.SendTarget(nil)
	s.SendAction(DndActionNone)
	s.cancelOffers(false)
}

// cancelOffers destroys every live offer on its receiver. With notify the
// receiver is told the session died via the offer's cancelled event;
// leave-driven cancels skip it because the receiver already saw leave.
func (s *WlDataSource) cancelOffers(notify bool) {
	offers := s.data.offers
	s.data.offers = nil
	for _, offer := range offers {
		if notify {
			offer.SendCancelled()
		}
		offer.destroyFromSource()
	}
}

// addOffer links a freshly created offer.
func (s *WlDataSource) addOffer(o *WlDataOffer) {
	s.data.offers = append(s.data.offers, o)
}

// removeOffer unlinks an offer destroyed by its receiver.
func (s *WlDataSource) removeOffer(o *WlDataOffer) {
	for i, other := range s.data.offers {
		if other == o {
			s.data.offers = append(s.data.offers[:i], s.data.offers[i+1:]...)
			return
		}
	}
}

// breakSourceLoops severs the source↔offer and source↔seat references so
// client teardown collapses the graph. Receivers of live offers are
// notified. Idempotent.
func (s *WlDataSource) breakSourceLoops() {
	s.cancelOffers(true)
	if seat := s.data.seat; seat != nil {
		seat.detachSource(s)
		s.data.seat = nil
	}
}
