package session

import (
	"context"
	"errors"
	"sort"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/pkg/conquest"
)

var (
	// ErrNoPending means a confirm or count edit arrived with no staged
	// action in the slot.
	ErrNoPending = errors.New("session: no pending action")
	// ErrNotReachable means the proposed destination is not in the unit's
	// legal destination set.
	ErrNotReachable = errors.New("session: destination not reachable")
	// ErrNoUnitsAvailable means every matching instance at the source is
	// already claimed by a committed order.
	ErrNoUnitsAvailable = errors.New("session: no unclaimed units at source")
	// ErrInstancesClaimed means the staged count could no longer be
	// satisfied at confirm time. The staged slot is cleared; nothing was
	// sent to the authority.
	ErrInstancesClaimed = errors.New("session: staged instances already claimed")
	// ErrNothingPurchased means a mobilization was proposed with an empty
	// purchased pool for that unit type.
	ErrNothingPurchased = errors.New("session: no purchased units of that type")
	// ErrInvalidDestination means the mobilization target is not an owned
	// mobilization point.
	ErrInvalidDestination = errors.New("session: not a valid mobilization point")
)

// PendingMove is a staged, unconfirmed movement order: source, target,
// unit type, and an adjustable count bounded by MaxCount.
type PendingMove struct {
	From     string
	To       string
	UnitID   string
	Count    int
	MaxCount int
	Phase    conquest.Phase

	// candidates are the unclaimed instance ids able to reach To, most
	// mobile first. Confirm takes the first Count of them.
	candidates []string
}

// PendingMobilization is a staged, unconfirmed deployment of purchased
// units to an owned mobilization point.
type PendingMobilization struct {
	UnitID      string
	Destination string
	Count       int
	MaxCount    int
}

// Selection is the transient UI focus: at most one territory and one
// stack highlighted at a time.
type Selection struct {
	Territory      string
	StackUnitID    string
	MobilizeUnitID string
}

// Store holds everything the player has expressed intent about but the
// authority has not yet accepted: the purchase cart, at most one pending
// move, at most one pending mobilization, and the current selection.
// All of it is forgettable; discarding the store loses no game state.
type Store struct {
	s *Session

	cart          conquest.Cart
	confirmedCart conquest.Cart

	pendingMove *PendingMove
	pendingMob  *PendingMobilization
	selection   Selection
}

// NewStore returns an empty store bound to the session.
func NewStore(s *Session) *Store {
	return &Store{
		s:             s,
		cart:          conquest.NewCart(),
		confirmedCart: conquest.NewCart(),
	}
}

// Cart returns the staged purchase cart.
func (st *Store) Cart() conquest.Cart { return st.cart }

// PendingMove returns the staged move, or nil.
func (st *Store) PendingMove() *PendingMove { return st.pendingMove }

// PendingMobilization returns the staged mobilization, or nil.
func (st *Store) PendingMobilization() *PendingMobilization { return st.pendingMob }

// Selection returns the current UI selection.
func (st *Store) Selection() Selection { return st.selection }

// Select sets the focused territory and clears stack focus.
func (st *Store) Select(territory string) {
	st.selection = Selection{Territory: territory}
}

// SelectStack focuses one unit-type stack within the selected territory.
func (st *Store) SelectStack(territory, unitID string) {
	st.selection = Selection{Territory: territory, StackUnitID: unitID}
}

// SelectMobilizeUnit focuses one unit type in the purchased pool.
func (st *Store) SelectMobilizeUnit(unitID string) {
	st.selection.MobilizeUnitID = unitID
}

// ClearSelection drops all UI focus.
func (st *Store) ClearSelection() {
	st.selection = Selection{}
}

// cartLimits assembles the validation constraints from the snapshot and
// the authority's purchase menu.
func (st *Store) cartLimits() conquest.CartLimits {
	snap := st.s.Snapshot()
	faction := snap.CurrentFaction
	limits := conquest.CartLimits{
		Resources:        snap.Resources(faction),
		AlreadyPurchased: snap.PurchasedCount(faction),
		Faction:          faction,
	}
	if a := st.s.Actions(); a != nil {
		limits.Capacity = a.MobilizationCapacity
		limits.CampCost = a.CampCost
	}
	return limits
}

// SetCartQuantity stages count units of the given type, replacing the
// previous quantity for that type. Edits that would break the cart
// invariant are rejected and leave the cart unchanged.
func (st *Store) SetCartQuantity(unitID string, count int) error {
	if count < 0 {
		count = 0
	}
	next := st.cart.Clone()
	if count == 0 {
		delete(next.Units, unitID)
	} else {
		next.Units[unitID] = count
	}
	if err := next.Validate(st.s.Definitions(), st.cartLimits()); err != nil {
		return err
	}
	st.cart = next
	return nil
}

// SetCartCamps stages a camp quantity, validated like any other edit.
func (st *Store) SetCartCamps(count int) error {
	if count < 0 {
		count = 0
	}
	next := st.cart.Clone()
	next.Camps = count
	if err := next.Validate(st.s.Definitions(), st.cartLimits()); err != nil {
		return err
	}
	st.cart = next
	return nil
}

// ConfirmCart marks the current cart contents as the revert point for a
// later RevertCart. Called when the purchase dialog is accepted.
func (st *Store) ConfirmCart() {
	st.confirmedCart = st.cart.Clone()
}

// RevertCart discards edits made since the last ConfirmCart. Called when
// the purchase dialog is dismissed without accepting.
func (st *Store) RevertCart() {
	st.cart = st.confirmedCart.Clone()
}

// clearCart resets both the working and confirmed carts. Called after
// successful submission and on phase exit.
func (st *Store) clearCart() {
	st.cart = conquest.NewCart()
	st.confirmedCart = conquest.NewCart()
}

// CartSpend returns the cart's current total cost per resource.
func (st *Store) CartSpend() map[string]int {
	campCost := 0
	if a := st.s.Actions(); a != nil {
		campCost = a.CampCost
	}
	spend, err := st.cart.Spend(st.s.Definitions(), campCost)
	if err != nil {
		return map[string]int{}
	}
	return spend
}

// claimedInstances returns the instance ids already consumed by committed
// pending moves originating at the given territory in the current phase.
func (st *Store) claimedInstances(from string) map[string]bool {
	snap := st.s.Snapshot()
	claimed := map[string]bool{}
	for _, pm := range snap.PendingMoves {
		if pm.FromTerritory != from || pm.Phase != string(snap.Phase) {
			continue
		}
		for _, id := range pm.UnitInstanceIDs {
			claimed[id] = true
		}
	}
	return claimed
}

// moveCandidates resolves which unclaimed instances of unitID at from can
// reach to, most mobile first. The authority's per-unit destination list
// wins when present; the local reachability walk is the fallback for
// rendering before the menu loads.
func (st *Store) moveCandidates(from, to, unitID string) []string {
	claimed := st.claimedInstances(from)

	if a := st.s.Actions(); a != nil && len(a.MoveableUnits) > 0 {
		ids := a.DestinationsFor(from, unitID)[to]
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if !claimed[id] {
				out = append(out, id)
			}
		}
		return out
	}

	// Fallback: walk the snapshot with the local rules.
	snap := st.s.Snapshot()
	terr, ok := snap.Territories[from]
	if !ok {
		return nil
	}
	type mover struct {
		id       string
		mobility int
	}
	var movers []mover
	defs := st.s.Definitions()
	board := st.s.Board()
	for _, u := range terr.Units {
		if u.UnitID != unitID || claimed[u.InstanceID] {
			continue
		}
		reach := conquest.Reachable(defs, board, snap.CurrentFaction, from, unitID, u.RemainingMovement, snap.Phase)
		if _, ok := reach[to]; ok {
			movers = append(movers, mover{u.InstanceID, u.RemainingMovement})
		}
	}
	sort.Slice(movers, func(i, j int) bool {
		if movers[i].mobility != movers[j].mobility {
			return movers[i].mobility > movers[j].mobility
		}
		return movers[i].id < movers[j].id
	})
	ids := make([]string, len(movers))
	for i, m := range movers {
		ids[i] = m.id
	}
	return ids
}

// ProposeMove stages a movement order of count units (clamped to what is
// actually available) from one territory to another. Any previously
// staged move is replaced.
func (st *Store) ProposeMove(from, to, unitID string, count int) error {
	if !conquest.IsMovePhase(st.s.Phase()) {
		return ErrNotReachable
	}
	if a := st.s.Actions(); a != nil && len(a.MoveableUnits) > 0 {
		_, menuSays := a.DestinationsFor(from, unitID)[to]
		if menuSays != st.locallyReachable(from, to, unitID) {
			// The menu models spent movement and special transit the
			// local walk cannot; it wins, but the mismatch is worth a
			// trace when debugging map rules.
			st.s.log.Warn().
				Str("from", from).
				Str("to", to).
				Str("unit", unitID).
				Bool("menu", menuSays).
				Msg("Authority and local reachability disagree, using authority")
		}
	}
	candidates := st.moveCandidates(from, to, unitID)
	if len(candidates) == 0 {
		if len(st.claimedInstances(from)) > 0 {
			return ErrNoUnitsAvailable
		}
		return ErrNotReachable
	}
	maxCount := len(candidates)
	if count < 1 {
		count = 1
	}
	if count > maxCount {
		count = maxCount
	}
	st.pendingMove = &PendingMove{
		From:       from,
		To:         to,
		UnitID:     unitID,
		Count:      count,
		MaxCount:   maxCount,
		Phase:      st.s.Phase(),
		candidates: candidates,
	}
	return nil
}

// locallyReachable reports whether the local walk considers to reachable
// for any unit of the given type at from, claims ignored.
func (st *Store) locallyReachable(from, to, unitID string) bool {
	snap := st.s.Snapshot()
	terr, ok := snap.Territories[from]
	if !ok {
		return false
	}
	defs := st.s.Definitions()
	board := st.s.Board()
	for _, u := range terr.Units {
		if u.UnitID != unitID {
			continue
		}
		reach := conquest.Reachable(defs, board, snap.CurrentFaction, from, unitID, u.RemainingMovement, snap.Phase)
		if _, ok := reach[to]; ok {
			return true
		}
	}
	return false
}

// UpdateMoveCount adjusts the staged move's count, clamped to [1, MaxCount].
func (st *Store) UpdateMoveCount(count int) error {
	if st.pendingMove == nil {
		return ErrNoPending
	}
	if count < 1 {
		count = 1
	}
	if count > st.pendingMove.MaxCount {
		count = st.pendingMove.MaxCount
	}
	st.pendingMove.Count = count
	return nil
}

// CancelMove discards the staged move without remote effect.
func (st *Store) CancelMove() {
	st.pendingMove = nil
}

// ConfirmMove resolves the staged move to concrete instance ids and
// commits it. Candidates are re-resolved at confirm time; if committed
// orders have since claimed too many instances the slot is cleared and
// ErrInstancesClaimed returned without any remote call.
func (st *Store) ConfirmMove(ctx context.Context) error {
	pm := st.pendingMove
	if pm == nil {
		return ErrNoPending
	}
	candidates := st.moveCandidates(pm.From, pm.To, pm.UnitID)
	if len(candidates) < pm.Count {
		st.pendingMove = nil
		return ErrInstancesClaimed
	}
	ids := candidates[:pm.Count]
	_, err := st.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return st.s.auth.Move(ctx, st.s.gameID, pm.From, pm.To, ids)
	})
	if err != nil {
		// Staged intent survives a rejected commit so the player can
		// adjust and retry.
		return err
	}
	st.pendingMove = nil
	st.s.phases.noteAction()
	return nil
}

// CancelCommittedMove cancels an already-committed move by its index in
// the snapshot's pending list. Only moves of the current phase may be
// canceled.
func (st *Store) CancelCommittedMove(ctx context.Context, index int) error {
	snap := st.s.Snapshot()
	if index < 0 || index >= len(snap.PendingMoves) {
		return ErrNoPending
	}
	if snap.PendingMoves[index].Phase != string(snap.Phase) {
		return ErrNoPending
	}
	_, err := st.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return st.s.auth.CancelMove(ctx, st.s.gameID, index)
	})
	return err
}

// purchasedPool returns how many units of the given type sit in the
// faction's purchased-but-unmobilized pool.
func (st *Store) purchasedPool(unitID string) int {
	snap := st.s.Snapshot()
	total := 0
	for _, stack := range snap.FactionPurchasedUnits[snap.CurrentFaction] {
		if stack.UnitID == unitID {
			total += stack.Count
		}
	}
	// Units already staged into committed mobilizations are spoken for.
	for _, pm := range snap.PendingMobilizations {
		for _, stack := range pm.Units {
			if stack.UnitID == unitID {
				total -= stack.Count
			}
		}
	}
	if total < 0 {
		total = 0
	}
	return total
}

// mobilizationPoints returns the owned territories units may deploy to.
func (st *Store) mobilizationPoints() map[string]bool {
	out := map[string]bool{}
	if a := st.s.Actions(); a != nil && a.MobilizeOptions != nil {
		for _, t := range a.MobilizeOptions.Territories {
			out[t] = true
		}
		return out
	}
	for _, t := range st.s.Snapshot().MobilizationStrongholds {
		out[t] = true
	}
	return out
}

// destinationCapacity returns how many units the stronghold can receive
// in one mobilization, its power production. The authority's capacity
// list wins; the territory definition is the pre-menu fallback.
func (st *Store) destinationCapacity(destination string) int {
	if a := st.s.Actions(); a != nil && a.MobilizeOptions != nil {
		for _, t := range a.MobilizeOptions.Capacity.Territories {
			if t.TerritoryID == destination {
				return t.Power
			}
		}
	}
	return st.s.Definitions().Territories[destination].Produces[conquest.ResourcePower]
}

// ProposeMobilization stages a deployment of count purchased units to an
// owned mobilization point, clamped to the remaining pool and to the
// destination's power capacity.
func (st *Store) ProposeMobilization(unitID, destination string, count int) error {
	if st.s.Phase() != conquest.PhaseMobilize {
		return ErrInvalidDestination
	}
	if !st.mobilizationPoints()[destination] {
		return ErrInvalidDestination
	}
	pool := st.purchasedPool(unitID)
	if pool == 0 {
		return ErrNothingPurchased
	}
	limit := pool
	if c := st.destinationCapacity(destination); c < limit {
		limit = c
	}
	if limit == 0 {
		return ErrInvalidDestination
	}
	if count < 1 {
		count = 1
	}
	if count > limit {
		count = limit
	}
	st.pendingMob = &PendingMobilization{
		UnitID:      unitID,
		Destination: destination,
		Count:       count,
		MaxCount:    limit,
	}
	return nil
}

// UpdateMobilizationCount adjusts the staged mobilization's count,
// clamped to [1, MaxCount].
func (st *Store) UpdateMobilizationCount(count int) error {
	if st.pendingMob == nil {
		return ErrNoPending
	}
	if count < 1 {
		count = 1
	}
	if count > st.pendingMob.MaxCount {
		count = st.pendingMob.MaxCount
	}
	st.pendingMob.Count = count
	return nil
}

// CancelMobilization discards the staged mobilization without remote
// effect.
func (st *Store) CancelMobilization() {
	st.pendingMob = nil
}

// ConfirmMobilization commits the staged mobilization. The pool is
// re-checked at confirm time the same way move instances are.
func (st *Store) ConfirmMobilization(ctx context.Context) error {
	pm := st.pendingMob
	if pm == nil {
		return ErrNoPending
	}
	if st.purchasedPool(pm.UnitID) < pm.Count {
		st.pendingMob = nil
		return ErrInstancesClaimed
	}
	units := []authority.UnitStack{{UnitID: pm.UnitID, Count: pm.Count}}
	_, err := st.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return st.s.auth.Mobilize(ctx, st.s.gameID, pm.Destination, units)
	})
	if err != nil {
		return err
	}
	st.pendingMob = nil
	st.s.phases.noteAction()
	return nil
}

// CancelCommittedMobilization cancels an already-committed mobilization
// by its index in the snapshot's pending list.
func (st *Store) CancelCommittedMobilization(ctx context.Context, index int) error {
	snap := st.s.Snapshot()
	if index < 0 || index >= len(snap.PendingMobilizations) {
		return ErrNoPending
	}
	_, err := st.s.commit(ctx, func(ctx context.Context) (*authority.ActionResponse, error) {
		return st.s.auth.CancelMobilization(ctx, st.s.gameID, index)
	})
	return err
}

// ReachableFrom returns the legal destination set for one unit-type stack
// at a territory in the current phase: territory id -> available count.
// Used to render drop-target highlights while a drag is in progress.
func (st *Store) ReachableFrom(territory, unitID string) map[string]int {
	out := map[string]int{}
	if a := st.s.Actions(); a != nil && len(a.MoveableUnits) > 0 {
		claimed := st.claimedInstances(territory)
		for dest, ids := range a.DestinationsFor(territory, unitID) {
			n := 0
			for _, id := range ids {
				if !claimed[id] {
					n++
				}
			}
			if n > 0 {
				out[dest] = n
			}
		}
		return out
	}
	snap := st.s.Snapshot()
	terr, ok := snap.Territories[territory]
	if !ok {
		return out
	}
	claimed := st.claimedInstances(territory)
	defs := st.s.Definitions()
	board := st.s.Board()
	for _, u := range terr.Units {
		if u.UnitID != unitID || claimed[u.InstanceID] {
			continue
		}
		for dest := range conquest.Reachable(defs, board, snap.CurrentFaction, territory, unitID, u.RemainingMovement, snap.Phase) {
			out[dest]++
		}
	}
	return out
}

// resetForPhase clears all staged intent when a phase boundary is
// crossed. Committed pending moves and mobilizations live in the
// snapshot and are untouched.
func (st *Store) resetForPhase() {
	st.pendingMove = nil
	st.pendingMob = nil
	st.selection = Selection{}
	st.clearCart()
}
