// Package session implements the client-side orchestration for one game:
// it mirrors the authoritative snapshot, stages not-yet-committed player
// intentions, controls phase transitions, and sequences multi-round
// combat reveals.
//
// A Session is a single logical actor. All state transitions happen on
// the caller's control thread; the only shared mutable resource is the
// snapshot, and it is only ever replaced wholesale by a successful
// remote response, never patched in place.
package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/pkg/conquest"
)

var (
	// ErrBusy means a commit is already in flight; the staging layer
	// never launches a second one for the same session.
	ErrBusy = errors.New("session: commit in flight")
	// ErrNotYourTurn means the authenticated player does not control the
	// acting faction right now.
	ErrNotYourTurn = errors.New("session: not your turn")
)

// Authority is the remote surface the session commits through. It is
// satisfied by *authority.Client; tests substitute a scripted fake.
type Authority interface {
	GetGame(ctx context.Context, gameID string) (*authority.GameBundle, error)
	AvailableActions(ctx context.Context, gameID string) (*authority.AvailableActions, error)
	Purchase(ctx context.Context, gameID string, purchases map[string]int) (*authority.ActionResponse, error)
	PurchaseCamp(ctx context.Context, gameID string) (*authority.ActionResponse, error)
	Move(ctx context.Context, gameID, from, to string, instanceIDs []string) (*authority.ActionResponse, error)
	CancelMove(ctx context.Context, gameID string, index int) (*authority.ActionResponse, error)
	CancelMobilization(ctx context.Context, gameID string, index int) (*authority.ActionResponse, error)
	Mobilize(ctx context.Context, gameID, destination string, units []authority.UnitStack) (*authority.ActionResponse, error)
	InitiateCombat(ctx context.Context, gameID, territoryID string) (*authority.ActionResponse, error)
	ContinueCombat(ctx context.Context, gameID string) (*authority.ActionResponse, error)
	Retreat(ctx context.Context, gameID, destination string) (*authority.ActionResponse, error)
	EndPhase(ctx context.Context, gameID string) (*authority.ActionResponse, error)
	EndTurn(ctx context.Context, gameID string) (*authority.ActionResponse, error)
}

// Session is the owned per-game context. One instance exists per active
// game view, constructed on game load and discarded on navigation away.
type Session struct {
	gameID string
	auth   Authority
	log    zerolog.Logger

	snapshot authority.Snapshot
	defs     conquest.Definitions
	canAct   bool

	// actions is the authority's per-phase menu; nil until the first
	// refresh completes for the current phase.
	actions *authority.AvailableActions

	store  *Store
	phases *PhaseController
	combat *Sequencer
	drag   *DragMapper
	events *EventLog

	busy bool
}

// New constructs a session for the given game. Call Load before use.
func New(gameID string, auth Authority, scheduler Scheduler, logger zerolog.Logger) *Session {
	s := &Session{
		gameID: gameID,
		auth:   auth,
		log:    logger.With().Str("gameId", gameID).Logger(),
		events: NewEventLog(logger),
	}
	s.store = NewStore(s)
	s.phases = NewPhaseController(s)
	s.combat = NewSequencer(s, scheduler)
	s.drag = NewDragMapper(s)
	return s
}

// Store returns the staged action store.
func (s *Session) Store() *Store { return s.store }

// Phases returns the phase transition controller.
func (s *Session) Phases() *PhaseController { return s.phases }

// Combat returns the combat round sequencer.
func (s *Session) Combat() *Sequencer { return s.combat }

// Drag returns the drag-intent mapper.
func (s *Session) Drag() *DragMapper { return s.drag }

// Events returns the display event log.
func (s *Session) Events() *EventLog { return s.events }

// Snapshot returns the current authoritative snapshot (read-only mirror).
func (s *Session) Snapshot() *authority.Snapshot { return &s.snapshot }

// Definitions returns the game's static definitions.
func (s *Session) Definitions() *conquest.Definitions { return &s.defs }

// Actions returns the authority's current action menu, or nil before it
// has loaded for this phase.
func (s *Session) Actions() *authority.AvailableActions { return s.actions }

// CanAct reports whether the authenticated player controls the acting
// faction.
func (s *Session) CanAct() bool { return s.canAct }

// Faction returns the acting faction.
func (s *Session) Faction() string { return s.snapshot.CurrentFaction }

// Phase returns the current phase.
func (s *Session) Phase() conquest.Phase { return s.snapshot.Phase }

// Load fetches the full snapshot, definitions, and the action menu. It
// is also the recovery path: reloading never loses remote state because
// the authority owns all of it.
func (s *Session) Load(ctx context.Context) error {
	bundle, err := s.auth.GetGame(ctx, s.gameID)
	if err != nil {
		return err
	}
	s.snapshot = bundle.State
	s.defs = bundle.Definitions
	s.canAct = bundle.CanAct
	s.phases.enterPhase(s.snapshot.Phase)

	actions, err := s.auth.AvailableActions(ctx, s.gameID)
	if err != nil {
		return err
	}
	s.actions = actions
	s.log.Debug().
		Str("phase", string(s.snapshot.Phase)).
		Str("faction", s.snapshot.CurrentFaction).
		Int("turn", s.snapshot.TurnNumber).
		Msg("Session loaded")
	return nil
}

// RefreshActions re-fetches the action menu for the current phase.
func (s *Session) RefreshActions(ctx context.Context) error {
	actions, err := s.auth.AvailableActions(ctx, s.gameID)
	if err != nil {
		return err
	}
	s.actions = actions
	return nil
}

// commit runs one mutating remote call, applies the returned snapshot,
// appends its events to the log, then refreshes the action menu. The
// apply and refresh steps are strictly sequential and no second commit
// may start in between, so every locally rendered legality set derives
// from the snapshot of the most recent commit.
//
// On failure nothing is applied: the snapshot, the staged state, and the
// action menu stay exactly as they were before the call.
func (s *Session) commit(ctx context.Context, call func(ctx context.Context) (*authority.ActionResponse, error)) (*authority.ActionResponse, error) {
	if s.busy {
		return nil, ErrBusy
	}
	s.busy = true
	defer func() { s.busy = false }()

	resp, err := call(ctx)
	if err != nil {
		s.events.AppendError(err)
		return nil, err
	}

	oldPhase := s.snapshot.Phase
	s.snapshot = resp.State
	s.canAct = resp.CanAct
	s.events.Append(resp.Events)
	if resp.State.Phase != oldPhase {
		s.phases.enterPhase(resp.State.Phase)
	}

	if err := s.RefreshActions(ctx); err != nil {
		// The commit itself succeeded; stale actions are recoverable on
		// the next refresh, so surface but do not fail the commit.
		s.events.AppendError(err)
	}
	return resp, nil
}

// Busy reports whether a commit is currently in flight. The interaction
// layer disables intent entry points while true.
func (s *Session) Busy() bool { return s.busy }

// board adapts the snapshot to the reachability calculator's view.
type board struct {
	snap *authority.Snapshot
	defs *conquest.Definitions
}

func (b board) Owner(territoryID string) (string, bool) {
	t, ok := b.snap.Territories[territoryID]
	if !ok {
		return "", false
	}
	return t.Owner, true
}

func (b board) HasHostileUnits(territoryID, faction string) bool {
	t, ok := b.snap.Territories[territoryID]
	if !ok {
		return false
	}
	for _, u := range t.Units {
		owner := b.defs.UnitFaction(u.UnitID)
		if owner == "" {
			// Factionless units (neutral monsters) fight everyone.
			return true
		}
		if owner != faction && !b.defs.SameAlliance(owner, faction) {
			return true
		}
	}
	return false
}

// Board returns the reachability view over the current snapshot.
func (s *Session) Board() conquest.Board {
	return board{snap: &s.snapshot, defs: &s.defs}
}
