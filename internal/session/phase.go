package session

import (
	"context"
	"errors"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/pkg/conquest"
)

var (
	// ErrBattlesUnresolved means the combat phase still has declared
	// battles to fight. Rejected locally; the authority is not consulted.
	ErrBattlesUnresolved = errors.New("session: unresolved battles remain")
	// ErrBattleInProgress means the sequencer is mid-battle; the phase
	// cannot end until the battle is closed.
	ErrBattleInProgress = errors.New("session: battle in progress")
	// ErrUndeployedUnits means purchased units remain in the pool at
	// mobilization end. The phase cannot end until they are deployed.
	ErrUndeployedUnits = errors.New("session: purchased units not deployed")
	// ErrConfirmBlankPhase means no action was taken this phase; ending
	// it needs an explicit confirmation.
	ErrConfirmBlankPhase = errors.New("session: confirm ending phase without actions")
)

// PhaseController guards phase transitions: it enforces the local
// preconditions for ending a phase, submits the purchase cart when the
// purchase phase closes, and resets per-phase staging when the authority
// reports a new phase.
type PhaseController struct {
	s *Session

	phase    conquest.Phase
	hasActed bool

	// combatMovesDeclared is the pending-move count captured when the
	// combat phase was entered, shown as the battle plan summary.
	combatMovesDeclared int
}

// NewPhaseController returns a controller bound to the session.
func NewPhaseController(s *Session) *PhaseController {
	return &PhaseController{s: s}
}

// Current returns the phase the controller last entered.
func (pc *PhaseController) Current() conquest.Phase { return pc.phase }

// HasActed reports whether any commit succeeded during this phase.
func (pc *PhaseController) HasActed() bool { return pc.hasActed }

// CombatMovesDeclared returns the number of moves that were committed in
// the combat move phase, captured at combat entry.
func (pc *PhaseController) CombatMovesDeclared() int { return pc.combatMovesDeclared }

// noteAction records that a mutating commit succeeded in this phase.
func (pc *PhaseController) noteAction() { pc.hasActed = true }

// enterPhase runs the per-phase resets when the snapshot's phase changes
// (or on initial load). Staged local intent never survives a boundary;
// committed pending orders live in the snapshot and are unaffected.
func (pc *PhaseController) enterPhase(phase conquest.Phase) {
	pc.phase = phase
	pc.hasActed = false
	if phase == conquest.PhaseCombat {
		pc.combatMovesDeclared = len(pc.s.Snapshot().PendingMoves)
	} else {
		pc.combatMovesDeclared = 0
	}
	if pc.s.store != nil {
		pc.s.store.resetForPhase()
	}
	if pc.s.combat != nil && phase != conquest.PhaseCombat {
		pc.s.combat.reset()
	}
}

// unresolvedBattles reports whether declared battles remain to be fought.
func (pc *PhaseController) unresolvedBattles() bool {
	if pc.s.Snapshot().ActiveCombat != nil {
		return true
	}
	if a := pc.s.Actions(); a != nil && len(a.CombatTerritories) > 0 {
		return true
	}
	return false
}

// submitCart flushes the staged cart to the authority: one purchase call
// for the unit quantities, then one camp purchase per staged camp. The
// cart is cleared only after every call succeeds.
func (pc *PhaseController) submitCart(ctx context.Context) error {
	cart := pc.s.store.Cart()
	if cart.Empty() {
		return nil
	}
	if cart.TotalUnits() > 0 {
		_, err := pc.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
			return pc.s.auth.Purchase(ctx, pc.s.gameID, cart.Units)
		})
		if err != nil {
			return err
		}
	}
	for i := 0; i < cart.Camps; i++ {
		_, err := pc.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
			return pc.s.auth.PurchaseCamp(ctx, pc.s.gameID)
		})
		if err != nil {
			return err
		}
	}
	pc.s.store.clearCart()
	pc.hasActed = true
	return nil
}

// EndPhase requests the phase transition. Local preconditions are
// checked first so hopeless requests never reach the authority:
//
//   - combat cannot end with unresolved battles or a battle mid-reveal
//   - a phase with no actions needs confirmed=true
//   - mobilization with an undeployed pool never ends; deploy first
//
// Ending the purchase phase submits the cart before the transition.
func (pc *PhaseController) EndPhase(ctx context.Context, confirmed bool) error {
	if !pc.s.CanAct() {
		return ErrNotYourTurn
	}
	if pc.s.Busy() {
		return ErrBusy
	}

	switch pc.s.Phase() {
	case conquest.PhaseCombat:
		if pc.s.combat.Active() {
			return ErrBattleInProgress
		}
		if pc.unresolvedBattles() {
			return ErrBattlesUnresolved
		}
	case conquest.PhasePurchase:
		if err := pc.submitCart(ctx); err != nil {
			return err
		}
	case conquest.PhaseMobilize:
		snap := pc.s.Snapshot()
		if snap.PurchasedCount(snap.CurrentFaction) > 0 {
			return ErrUndeployedUnits
		}
	}

	if !pc.hasActed && !confirmed && pc.blankPhaseNeedsConfirm() {
		return ErrConfirmBlankPhase
	}

	_, err := pc.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return pc.s.auth.EndPhase(ctx, pc.s.gameID)
	})
	return err
}

// blankPhaseNeedsConfirm reports whether ending the current phase with
// zero actions should prompt. Combat with nothing declared is exempt;
// there was nothing to do. Mobilize is exempt too, the undeployed-pool
// guard is its only gate.
func (pc *PhaseController) blankPhaseNeedsConfirm() bool {
	switch pc.s.Phase() {
	case conquest.PhaseMobilize:
		return false
	case conquest.PhaseCombat:
		return pc.combatMovesDeclared > 0
	}
	return true
}

// EndTurn skips every remaining phase of the turn in one call. The same
// combat guards apply; everything else is forfeited deliberately, so no
// blank-phase prompt.
func (pc *PhaseController) EndTurn(ctx context.Context) error {
	if !pc.s.CanAct() {
		return ErrNotYourTurn
	}
	if pc.s.Busy() {
		return ErrBusy
	}
	if pc.s.Phase() == conquest.PhaseCombat || pc.s.Snapshot().ActiveCombat != nil {
		if pc.s.combat.Active() {
			return ErrBattleInProgress
		}
		if pc.unresolvedBattles() {
			return ErrBattlesUnresolved
		}
	}
	if pc.s.Phase() == conquest.PhasePurchase {
		if err := pc.submitCart(ctx); err != nil {
			return err
		}
	}
	_, err := pc.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return pc.s.auth.EndTurn(ctx, pc.s.gameID)
	})
	return err
}
