package session

import (
	"context"
	"errors"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/pkg/conquest"
)

var (
	// ErrNoBattle means the requested battle operation needs an open
	// battle and there is none.
	ErrNoBattle = errors.New("session: no battle open")
	// ErrBadBattleState means the operation is not legal in the
	// sequencer's current state.
	ErrBadBattleState = errors.New("session: operation not valid in this battle state")
	// ErrNotContested means the territory has no declared battle to open.
	ErrNotContested = errors.New("session: territory is not contested")
	// ErrRetreatLocked means retreat is not available: either no full
	// round has resolved yet or there is no valid destination.
	ErrRetreatLocked = errors.New("session: retreat not available")
)

// BattleState is the sequencer's position in one battle's lifecycle.
type BattleState string

const (
	StateIdle              BattleState = "idle"
	StateReady             BattleState = "ready"
	StateRolling           BattleState = "rolling"
	StateRevealing         BattleState = "revealing"
	StateAwaitingDecision  BattleState = "awaiting_decision"
	StateConfirmingRetreat BattleState = "confirming_retreat"
	StateSelectingRetreat  BattleState = "selecting_retreat"
	StateShowingResult     BattleState = "showing_result"
	StateComplete          BattleState = "complete"
)

// OutcomeRetreated marks a battle the attacker left voluntarily, as
// opposed to the authority's attacker/defender/draw verdicts.
const OutcomeRetreated = "retreated"

// RevealedRow is one dice row as currently presented: entered, and
// possibly landed on its final values.
type RevealedRow struct {
	Group  conquest.DiceGroup
	Landed bool
}

// BattleResult is what Close hands back to the caller when a finished
// battle is dismissed.
type BattleResult struct {
	Territory string
	Outcome   string
	Rounds    int
	Survivors []conquest.UnitRef
}

// Sequencer runs one battle at a time through its roll/reveal/decide
// cycle. It owns the only state in the client that is deliberately
// behind the snapshot: rosters are frozen when the battle opens so the
// reveal keeps showing units the authority has already removed, and the
// lag is reconciled when the battle closes.
type Sequencer struct {
	s     *Session
	sched Scheduler

	state     BattleState
	territory string

	attackerRoster []conquest.UnitRef
	defenderRoster []conquest.UnitRef

	// Cumulative casualties across resolved rounds of this battle.
	attackerFallen map[string]bool
	defenderFallen map[string]bool

	round         *conquest.RoundRecord
	rows          []conquest.DiceGroup
	revealed      []RevealedRow
	hitsVisible   bool
	badgesVisible bool

	fullRounds int
	over       *authority.CombatEnded
	result     *BattleResult
}

// NewSequencer returns an idle sequencer bound to the session.
func NewSequencer(s *Session, sched Scheduler) *Sequencer {
	return &Sequencer{s: s, sched: sched, state: StateIdle}
}

// State returns the sequencer's current state.
func (sq *Sequencer) State() BattleState { return sq.state }

// Territory returns the open battle's territory, or "".
func (sq *Sequencer) Territory() string { return sq.territory }

// Active reports whether a battle is open in any state. The phase
// controller refuses to end the combat phase while this is true.
func (sq *Sequencer) Active() bool { return sq.state != StateIdle }

// AttackerRoster returns the attacker units as frozen at battle open.
func (sq *Sequencer) AttackerRoster() []conquest.UnitRef { return sq.attackerRoster }

// DefenderRoster returns the defender units as frozen at battle open.
func (sq *Sequencer) DefenderRoster() []conquest.UnitRef { return sq.defenderRoster }

// Round returns the round currently being revealed or decided, or nil.
func (sq *Sequencer) Round() *conquest.RoundRecord { return sq.round }

// RevealedRows returns the dice rows presented so far this round.
func (sq *Sequencer) RevealedRows() []RevealedRow { return sq.revealed }

// HitsVisible reports whether the round's hit totals have been shown.
func (sq *Sequencer) HitsVisible() bool { return sq.hitsVisible }

// BadgesVisible reports whether per-stack damage badges have been shown.
func (sq *Sequencer) BadgesVisible() bool { return sq.badgesVisible }

// FullRounds returns how many non-prefire rounds have resolved.
func (sq *Sequencer) FullRounds() int { return sq.fullRounds }

// Fallen reports whether the given instance is a cumulative casualty of
// the open battle.
func (sq *Sequencer) Fallen(instanceID string) bool {
	return sq.attackerFallen[instanceID] || sq.defenderFallen[instanceID]
}

// Open starts the battle view for a contested territory. Rosters are
// snapshotted now; all per-battle tallies start at zero even when the
// same territory was opened and retreated from earlier this phase.
func (sq *Sequencer) Open(territoryID string) error {
	if sq.state != StateIdle {
		return ErrBadBattleState
	}
	if sq.s.Phase() != conquest.PhaseCombat {
		return ErrBadBattleState
	}

	attackers, defenders, ok := sq.rosters(territoryID)
	if !ok {
		return ErrNotContested
	}

	sq.territory = territoryID
	sq.attackerRoster = attackers
	sq.defenderRoster = defenders
	sq.attackerFallen = map[string]bool{}
	sq.defenderFallen = map[string]bool{}
	sq.round = nil
	sq.rows = nil
	sq.revealed = nil
	sq.hitsVisible = false
	sq.badgesVisible = false
	sq.fullRounds = 0
	sq.over = nil
	sq.result = nil
	sq.state = StateReady

	sq.s.log.Debug().
		Str("territory", territoryID).
		Int("attackers", len(attackers)).
		Int("defenders", len(defenders)).
		Msg("Battle opened")
	return nil
}

// rosters partitions the territory's units into attacker and defender
// sides. The authority's contested-territory listing wins; the fallback
// partitions by alliance with the acting faction.
func (sq *Sequencer) rosters(territoryID string) (attackers, defenders []conquest.UnitRef, ok bool) {
	snap := sq.s.Snapshot()
	terr, exists := snap.Territories[territoryID]
	if !exists {
		return nil, nil, false
	}

	if a := sq.s.Actions(); a != nil {
		for _, ct := range a.CombatTerritories {
			if ct.TerritoryID != territoryID {
				continue
			}
			attackerSide := make(map[string]bool, len(ct.AttackerUnitIDs))
			for _, id := range ct.AttackerUnitIDs {
				attackerSide[id] = true
			}
			for _, u := range terr.Units {
				ref := conquest.UnitRef{InstanceID: u.InstanceID, UnitID: u.UnitID, BaseHealth: u.BaseHealth}
				if attackerSide[u.InstanceID] {
					attackers = append(attackers, ref)
				} else {
					defenders = append(defenders, ref)
				}
			}
			return attackers, defenders, len(attackers) > 0 && len(defenders) > 0
		}
	}

	defs := sq.s.Definitions()
	faction := snap.CurrentFaction
	for _, u := range terr.Units {
		ref := conquest.UnitRef{InstanceID: u.InstanceID, UnitID: u.UnitID, BaseHealth: u.BaseHealth}
		owner := defs.UnitFaction(u.UnitID)
		if owner == faction || (owner != "" && defs.SameAlliance(owner, faction)) {
			attackers = append(attackers, ref)
		} else {
			defenders = append(defenders, ref)
		}
	}
	return attackers, defenders, len(attackers) > 0 && len(defenders) > 0
}

// Roll requests the next combat round: the opening roll initiates the
// battle on the authority, subsequent rolls continue it. On failure the
// sequencer reverts to the state it was in, so the player can retry or
// retreat.
func (sq *Sequencer) Roll(ctx context.Context) error {
	var revert BattleState
	switch sq.state {
	case StateReady:
		revert = StateReady
	case StateAwaitingDecision:
		revert = StateAwaitingDecision
	default:
		if sq.state == StateIdle {
			return ErrNoBattle
		}
		return ErrBadBattleState
	}

	sq.state = StateRolling

	var resp *authority.ActionResponse
	var err error
	if revert == StateReady {
		resp, err = sq.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
			return sq.s.auth.InitiateCombat(ctx, sq.s.gameID, sq.territory)
		})
	} else {
		resp, err = sq.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
			return sq.s.auth.ContinueCombat(ctx, sq.s.gameID)
		})
	}
	if err != nil {
		sq.state = revert
		return err
	}

	round, over, derr := authority.FindRound(resp.Events)
	if derr != nil {
		sq.state = revert
		return derr
	}

	// Fold the previous round's casualties into the battle tally before
	// its record is replaced. Deferred to here so a failed request leaves
	// the round view intact.
	sq.foldRound()
	sq.over = over
	if round == nil {
		// No dice to show (battle resolved without a round, or the
		// initiate found no defender volley); jump straight to verdict
		// or hand the decision back.
		if over != nil {
			sq.showResult()
		} else {
			sq.state = StateAwaitingDecision
		}
		return nil
	}

	sq.round = round
	if !round.ArcherPrefire {
		sq.fullRounds++
	}
	sq.rows = round.RevealOrder()
	sq.revealed = nil
	sq.hitsVisible = false
	sq.badgesVisible = false
	sq.state = StateRevealing
	sq.scheduleNextRow()
	return nil
}

// foldRound merges the current round's casualties into the cumulative
// battle tally and drops the round.
func (sq *Sequencer) foldRound() {
	if sq.round == nil {
		return
	}
	for _, id := range sq.round.AttackerCasualties {
		sq.attackerFallen[id] = true
	}
	for _, id := range sq.round.DefenderCasualties {
		sq.defenderFallen[id] = true
	}
	sq.round = nil
}

func (sq *Sequencer) scheduleNextRow() {
	if len(sq.revealed) < len(sq.rows) {
		sq.sched.After(StepRevealRow, sq.revealRow)
		return
	}
	sq.sched.After(StepShowHits, sq.showHits)
}

func (sq *Sequencer) revealRow() {
	if sq.state != StateRevealing {
		return
	}
	sq.revealed = append(sq.revealed, RevealedRow{Group: sq.rows[len(sq.revealed)]})
	sq.sched.After(StepLandRow, sq.landRow)
}

func (sq *Sequencer) landRow() {
	if sq.state != StateRevealing || len(sq.revealed) == 0 {
		return
	}
	sq.revealed[len(sq.revealed)-1].Landed = true
	sq.scheduleNextRow()
}

func (sq *Sequencer) showHits() {
	if sq.state != StateRevealing {
		return
	}
	sq.hitsVisible = true
	sq.sched.After(StepShowBadges, sq.showBadges)
}

func (sq *Sequencer) showBadges() {
	if sq.state != StateRevealing {
		return
	}
	sq.badgesVisible = true
	if sq.over != nil {
		sq.sched.After(StepShowResult, sq.showResult)
		return
	}
	sq.state = StateAwaitingDecision
}

func (sq *Sequencer) showResult() {
	sq.foldRound()
	outcome := OutcomeRetreated
	rounds := sq.fullRounds
	var survivorIDs []string
	if sq.over != nil {
		outcome = sq.over.Winner
		if sq.over.TotalRounds > 0 {
			rounds = sq.over.TotalRounds
		}
		survivorIDs = sq.over.SurvivingAttackerIDs
	}

	var survivors []conquest.UnitRef
	if survivorIDs != nil {
		keep := make(map[string]bool, len(survivorIDs))
		for _, id := range survivorIDs {
			keep[id] = true
		}
		for _, u := range sq.attackerRoster {
			if keep[u.InstanceID] {
				survivors = append(survivors, u)
			}
		}
	} else {
		for _, u := range sq.attackerRoster {
			if !sq.attackerFallen[u.InstanceID] {
				survivors = append(survivors, u)
			}
		}
	}

	sq.result = &BattleResult{
		Territory: sq.territory,
		Outcome:   outcome,
		Rounds:    rounds,
		Survivors: survivors,
	}
	sq.state = StateShowingResult
	sq.sched.After(StepShowResult, sq.finishResult)
}

func (sq *Sequencer) finishResult() {
	if sq.state != StateShowingResult {
		return
	}
	sq.state = StateComplete
}

// Skip fast-forwards the current reveal: every remaining row lands, hit
// totals and badges appear, and the sequencer advances to the decision
// or result immediately.
func (sq *Sequencer) Skip() {
	if sq.state != StateRevealing {
		return
	}
	sq.sched.Cancel()
	for len(sq.revealed) < len(sq.rows) {
		sq.revealed = append(sq.revealed, RevealedRow{Group: sq.rows[len(sq.revealed)], Landed: true})
	}
	for i := range sq.revealed {
		sq.revealed[i].Landed = true
	}
	sq.hitsVisible = true
	sq.badgesVisible = true
	if sq.over != nil {
		sq.showResult()
		return
	}
	sq.state = StateAwaitingDecision
}

// AttackerBadges returns the per-stack hit counts to show on attacker
// stacks for the current round. The authority's own map wins; otherwise
// it is reconstructed from the roster and casualty lists.
func (sq *Sequencer) AttackerBadges() map[string]int {
	if sq.round == nil {
		return map[string]int{}
	}
	// Defender hits land on attacker stacks.
	if len(sq.round.AttackerHitsByType) > 0 {
		return sq.round.AttackerHitsByType
	}
	return conquest.HitsByUnitType(sq.attackerRoster, sq.round.AttackerCasualties, sq.round.AttackerWounded)
}

// DefenderBadges returns the per-stack hit counts for defender stacks.
func (sq *Sequencer) DefenderBadges() map[string]int {
	if sq.round == nil {
		return map[string]int{}
	}
	if len(sq.round.DefenderHitsByType) > 0 {
		return sq.round.DefenderHitsByType
	}
	return conquest.HitsByUnitType(sq.defenderRoster, sq.round.DefenderCasualties, sq.round.DefenderWounded)
}

// CanRetreat reports whether the attacker may retreat right now: a
// decision is pending, at least one full round has resolved (a prefire
// volley alone does not unlock retreat), and a destination exists.
func (sq *Sequencer) CanRetreat() bool {
	if sq.state != StateAwaitingDecision || sq.fullRounds < 1 {
		return false
	}
	return len(sq.RetreatDestinations()) > 0
}

// RetreatDestinations returns the authority-validated retreat targets.
func (sq *Sequencer) RetreatDestinations() []string {
	a := sq.s.Actions()
	if a == nil || a.RetreatOptions == nil || !a.RetreatOptions.CanRetreat {
		return nil
	}
	return a.RetreatOptions.ValidDestinations
}

// RequestRetreat moves to the retreat confirmation prompt.
func (sq *Sequencer) RequestRetreat() error {
	if !sq.CanRetreat() {
		if sq.state != StateAwaitingDecision {
			return ErrBadBattleState
		}
		return ErrRetreatLocked
	}
	sq.state = StateConfirmingRetreat
	return nil
}

// ConfirmRetreat accepts the prompt and moves to destination selection.
func (sq *Sequencer) ConfirmRetreat() error {
	if sq.state != StateConfirmingRetreat {
		return ErrBadBattleState
	}
	sq.state = StateSelectingRetreat
	return nil
}

// CancelRetreat abandons the retreat flow and returns to the decision.
func (sq *Sequencer) CancelRetreat() error {
	if sq.state != StateConfirmingRetreat && sq.state != StateSelectingRetreat {
		return ErrBadBattleState
	}
	sq.state = StateAwaitingDecision
	return nil
}

// Retreat commits the retreat to the chosen destination. It ends the
// battle and moves the surviving attackers; the sequencer proceeds to
// the result banner. On failure the destination selection remains open.
func (sq *Sequencer) Retreat(ctx context.Context, destination string) error {
	if sq.state != StateSelectingRetreat {
		return ErrBadBattleState
	}
	valid := false
	for _, d := range sq.RetreatDestinations() {
		if d == destination {
			valid = true
			break
		}
	}
	if !valid {
		return ErrRetreatLocked
	}

	resp, err := sq.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return sq.s.auth.Retreat(ctx, sq.s.gameID, destination)
	})
	if err != nil {
		return err
	}
	_, over, derr := authority.FindRound(resp.Events)
	if derr == nil && over != nil {
		sq.over = over
	} else {
		sq.over = nil
	}
	sq.showResult()
	if sq.result != nil && sq.over == nil {
		sq.result.Outcome = OutcomeRetreated
	}
	return nil
}

// Close dismisses the finished battle and returns its outcome. The
// sequencer returns to idle; the already-applied snapshot shows the
// reconciled board.
func (sq *Sequencer) Close() (*BattleResult, error) {
	if sq.state != StateComplete {
		return nil, ErrBadBattleState
	}
	result := sq.result
	sq.reset()
	sq.s.phases.noteAction()
	return result, nil
}

// Abort abandons an opened battle that has not rolled yet. Once dice
// have been requested the battle must run to a verdict or a retreat.
func (sq *Sequencer) Abort() error {
	if sq.state != StateReady {
		return ErrBadBattleState
	}
	sq.reset()
	return nil
}

// reset returns the sequencer to idle and drops all per-battle state.
func (sq *Sequencer) reset() {
	if sq.sched != nil {
		sq.sched.Cancel()
	}
	sq.state = StateIdle
	sq.territory = ""
	sq.attackerRoster = nil
	sq.defenderRoster = nil
	sq.attackerFallen = nil
	sq.defenderFallen = nil
	sq.round = nil
	sq.rows = nil
	sq.revealed = nil
	sq.hitsVisible = false
	sq.badgesVisible = false
	sq.fullRounds = 0
	sq.over = nil
	sq.result = nil
}
