package session

import "github.com/freeeve/warfront/client/pkg/conquest"

// DragKind distinguishes what a drag gesture picked up.
type DragKind string

const (
	// DragStack is a unit-type stack lifted from a territory.
	DragStack DragKind = "stack"
	// DragPurchased is a unit type lifted from the purchased pool during
	// mobilization.
	DragPurchased DragKind = "purchased"
)

// DragPayload describes an in-progress drag gesture.
type DragPayload struct {
	Kind   DragKind
	Source string // territory id; empty for DragPurchased
	UnitID string
}

// DragMapper translates drag-and-drop gestures into staged actions. It
// never commits anything: a successful drop stages a pending action in
// the store for the player to adjust and confirm, and an illegal drop is
// ignored without an error dialog.
type DragMapper struct {
	s *Session
}

// NewDragMapper returns a mapper bound to the session.
func NewDragMapper(s *Session) *DragMapper {
	return &DragMapper{s: s}
}

// Targets returns the legal drop territories for the payload, mapped to
// the number of units available to send there. Used to highlight the
// board while the drag is held.
func (dm *DragMapper) Targets(p DragPayload) map[string]int {
	if dm.s.Busy() || !dm.s.CanAct() {
		return map[string]int{}
	}
	switch p.Kind {
	case DragStack:
		if !conquest.IsMovePhase(dm.s.Phase()) {
			return map[string]int{}
		}
		return dm.s.store.ReachableFrom(p.Source, p.UnitID)
	case DragPurchased:
		if dm.s.Phase() != conquest.PhaseMobilize {
			return map[string]int{}
		}
		pool := dm.s.store.purchasedPool(p.UnitID)
		if pool == 0 {
			return map[string]int{}
		}
		out := map[string]int{}
		for t := range dm.s.store.mobilizationPoints() {
			n := pool
			if c := dm.s.store.destinationCapacity(t); c < n {
				n = c
			}
			if n > 0 {
				out[t] = n
			}
		}
		return out
	default:
		return map[string]int{}
	}
}

// Drop stages the action implied by releasing the payload over target.
// It reports whether a pending action opened; an illegal drop simply
// returns false. The initial staged count is the full available amount,
// which the confirmation dialog lets the player reduce.
func (dm *DragMapper) Drop(p DragPayload, target string) bool {
	targets := dm.Targets(p)
	available, ok := targets[target]
	if !ok {
		return false
	}
	switch p.Kind {
	case DragStack:
		return dm.s.store.ProposeMove(p.Source, target, p.UnitID, available) == nil
	case DragPurchased:
		return dm.s.store.ProposeMobilization(p.UnitID, target, available) == nil
	default:
		return false
	}
}
