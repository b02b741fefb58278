package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/internal/testutil"
	"github.com/freeeve/warfront/client/pkg/conquest"
)

func TestProposeMove_ClampsToAvailable(t *testing.T) {
	s, _, _ := newTestSession(t, conquest.PhaseCombatMove)

	// Three riders sit at ironvale; asking for five stages three.
	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 5); err != nil {
		t.Fatal(err)
	}
	pm := s.Store().PendingMove()
	if pm == nil {
		t.Fatal("expected a pending move")
	}
	if pm.Count != 3 || pm.MaxCount != 3 {
		t.Fatalf("expected count 3 of 3, got %d of %d", pm.Count, pm.MaxCount)
	}
}

func TestProposeMove_UnreachableRejected(t *testing.T) {
	s, _, _ := newTestSession(t, conquest.PhaseCombatMove)

	// Westmark is friendly: not an attack destination.
	err := s.Store().ProposeMove(testutil.Ironvale, testutil.Westmark, "crown_rider", 1)
	if !errors.Is(err, ErrNotReachable) {
		t.Fatalf("expected ErrNotReachable, got %v", err)
	}
	if s.Store().PendingMove() != nil {
		t.Fatal("no move should be staged")
	}
}

func TestProposeMove_AuthorityDestinationsWin(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseCombatMove)

	// The menu says only cr1 can reach thornwood, overriding the local
	// walk that would offer all three riders.
	mu := authority.MoveableUnit{Territory: testutil.Ironvale, Destinations: map[string]int{testutil.Thornwood: 1}}
	mu.Unit.InstanceID = "cr1"
	mu.Unit.UnitID = "crown_rider"
	mu.Unit.RemainingMovement = 2
	fake.Actions.MoveableUnits = []authority.MoveableUnit{mu}

	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 3); err != nil {
		t.Fatal(err)
	}
	if got := s.Store().PendingMove().MaxCount; got != 1 {
		t.Fatalf("expected max 1 from the menu, got %d", got)
	}
}

func TestUpdateMoveCount_Clamps(t *testing.T) {
	s, _, _ := newTestSession(t, conquest.PhaseCombatMove)
	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 2); err != nil {
		t.Fatal(err)
	}

	s.Store().UpdateMoveCount(99)
	if got := s.Store().PendingMove().Count; got != 3 {
		t.Fatalf("expected clamp to 3, got %d", got)
	}
	s.Store().UpdateMoveCount(0)
	if got := s.Store().PendingMove().Count; got != 1 {
		t.Fatalf("expected clamp to 1, got %d", got)
	}
	if err := s.Store().UpdateMoveCount(2); err != nil {
		t.Fatal(err)
	}
}

func TestConfirmMove_CommitsAndClears(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseCombatMove)
	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 2); err != nil {
		t.Fatal(err)
	}

	next := *s.Snapshot()
	next.PendingMoves = []authority.PendingMove{{
		FromTerritory:   testutil.Ironvale,
		ToTerritory:     testutil.Thornwood,
		UnitInstanceIDs: []string{"cr1", "cr2"},
		Phase:           string(conquest.PhaseCombatMove),
	}}
	fake.Script(testutil.OK(next))

	if err := s.Store().ConfirmMove(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Store().PendingMove() != nil {
		t.Error("pending move should clear after confirm")
	}
	if len(s.Snapshot().PendingMoves) != 1 {
		t.Error("snapshot should carry the committed move")
	}

	found := false
	for _, call := range fake.Calls {
		if strings.HasPrefix(call, "move ") {
			found = true
			if !strings.Contains(call, "cr1") || !strings.Contains(call, "cr2") {
				t.Errorf("expected two rider instances in %q", call)
			}
		}
	}
	if !found {
		t.Fatal("expected a move call")
	}
}

func TestProposeMove_ClaimedReduceLargerStack(t *testing.T) {
	s, _, _ := newTestSession(t, conquest.PhaseCombatMove)

	// Grow the stack to five riders, two of them spoken for.
	iv := s.Snapshot().Territories[testutil.Ironvale]
	iv.Units = append(iv.Units, testutil.Unit("cr4", "crown_rider", 2), testutil.Unit("cr5", "crown_rider", 2))
	s.Snapshot().Territories[testutil.Ironvale] = iv
	s.Snapshot().PendingMoves = []authority.PendingMove{{
		FromTerritory:   testutil.Ironvale,
		ToTerritory:     testutil.Thornwood,
		UnitInstanceIDs: []string{"cr1", "cr2"},
		Phase:           string(conquest.PhaseCombatMove),
	}}

	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 5); err != nil {
		t.Fatal(err)
	}
	pm := s.Store().PendingMove()
	if pm.Count != 3 || pm.MaxCount != 3 {
		t.Fatalf("expected 3 unclaimed riders, got %d of %d", pm.Count, pm.MaxCount)
	}
}

func TestConfirmMove_ClaimedInstancesExcluded(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseCombatMove)

	// Two riders already committed elsewhere this phase: only one left.
	s.Snapshot().PendingMoves = []authority.PendingMove{{
		FromTerritory:   testutil.Ironvale,
		ToTerritory:     testutil.Thornwood,
		UnitInstanceIDs: []string{"cr1", "cr2"},
		Phase:           string(conquest.PhaseCombatMove),
	}}

	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 3); err != nil {
		t.Fatal(err)
	}
	pm := s.Store().PendingMove()
	if pm.MaxCount != 1 || pm.Count != 1 {
		t.Fatalf("expected 1 unclaimed rider, got %d of %d", pm.Count, pm.MaxCount)
	}

	fake.Script(testutil.OK(*s.Snapshot()))
	if err := s.Store().ConfirmMove(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, call := range fake.Calls {
		if strings.HasPrefix(call, "move ") {
			if strings.Contains(call, "cr1") || strings.Contains(call, "cr2") {
				t.Fatalf("claimed instance reused in %q", call)
			}
		}
	}
}

func TestConfirmMove_RaceDetected(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseCombatMove)
	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 3); err != nil {
		t.Fatal(err)
	}

	// All riders get claimed between propose and confirm.
	s.Snapshot().PendingMoves = []authority.PendingMove{{
		FromTerritory:   testutil.Ironvale,
		ToTerritory:     testutil.Thornwood,
		UnitInstanceIDs: []string{"cr1", "cr2", "cr3"},
		Phase:           string(conquest.PhaseCombatMove),
	}}

	err := s.Store().ConfirmMove(context.Background())
	if !errors.Is(err, ErrInstancesClaimed) {
		t.Fatalf("expected ErrInstancesClaimed, got %v", err)
	}
	if s.Store().PendingMove() != nil {
		t.Error("staged move should clear on a claim race")
	}
	for _, call := range fake.Calls {
		if strings.HasPrefix(call, "move ") {
			t.Fatal("no remote call should be made")
		}
	}
}

func TestConfirmMove_RemoteRejectionKeepsStaged(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseCombatMove)
	if err := s.Store().ProposeMove(testutil.Ironvale, testutil.Thornwood, "crown_rider", 2); err != nil {
		t.Fatal(err)
	}

	fake.Fail(&authority.RemoteError{Status: 400, Detail: "not your turn"})
	if err := s.Store().ConfirmMove(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.Store().PendingMove() == nil {
		t.Error("staged move should survive a remote rejection")
	}
}

func TestCancelCommittedMove(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseCombatMove)
	s.Snapshot().PendingMoves = []authority.PendingMove{{
		FromTerritory:   testutil.Ironvale,
		ToTerritory:     testutil.Thornwood,
		UnitInstanceIDs: []string{"cr1"},
		Phase:           string(conquest.PhaseCombatMove),
	}}

	next := *s.Snapshot()
	next.PendingMoves = nil
	fake.Script(testutil.OK(next))

	if err := s.Store().CancelCommittedMove(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if len(s.Snapshot().PendingMoves) != 0 {
		t.Error("snapshot should drop the canceled move")
	}

	if err := s.Store().CancelCommittedMove(context.Background(), 5); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending for bad index, got %v", err)
	}
}

func TestCartEditing(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhasePurchase)
	fake.Actions.MobilizationCapacity = 5
	fake.Actions.CampCost = 5

	// 10 power: three spears (9) fit, a fourth does not.
	if err := s.Store().SetCartQuantity("crown_spear", 3); err != nil {
		t.Fatal(err)
	}
	if err := s.Store().SetCartQuantity("crown_spear", 4); !errors.Is(err, conquest.ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}
	if got := s.Store().Cart().Units["crown_spear"]; got != 3 {
		t.Fatalf("rejected edit should not stick, cart has %d", got)
	}
	if got := s.Store().CartSpend()[conquest.ResourcePower]; got != 9 {
		t.Fatalf("expected spend 9, got %d", got)
	}
}

func TestCartEditing_ExactBudget(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhasePurchase)
	fake.Actions.MobilizationCapacity = 10
	fake.Actions.CampCost = 2

	// Two archers (8) plus one camp (2) spend the full 10 power.
	if err := s.Store().SetCartQuantity("crown_archer", 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Store().SetCartCamps(1); err != nil {
		t.Fatal(err)
	}
	if got := s.Store().CartSpend()[conquest.ResourcePower]; got != 10 {
		t.Fatalf("expected spend 10, got %d", got)
	}

	// Anything more is over budget.
	if err := s.Store().SetCartQuantity("crown_spear", 1); !errors.Is(err, conquest.ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}
	if err := s.Store().SetCartCamps(2); !errors.Is(err, conquest.ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}
}

func TestCartConfirmRevert(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhasePurchase)
	fake.Actions.MobilizationCapacity = 5
	fake.Actions.CampCost = 5

	if err := s.Store().SetCartQuantity("crown_spear", 2); err != nil {
		t.Fatal(err)
	}
	s.Store().ConfirmCart()

	if err := s.Store().SetCartQuantity("crown_spear", 1); err != nil {
		t.Fatal(err)
	}
	s.Store().RevertCart()
	if got := s.Store().Cart().Units["crown_spear"]; got != 2 {
		t.Fatalf("revert should restore confirmed cart, got %d", got)
	}
}

func TestProposeMobilization(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseMobilize)
	s.Snapshot().FactionPurchasedUnits = map[string][]authority.UnitStack{
		testutil.FactionCrown: {{UnitID: "crown_spear", Count: 3}},
	}
	fake.Actions.MobilizeOptions = &authority.MobilizeOptions{Territories: []string{testutil.Westmark}}

	if err := s.Store().ProposeMobilization("crown_spear", testutil.Thornwood, 1); !errors.Is(err, ErrInvalidDestination) {
		t.Fatalf("expected ErrInvalidDestination, got %v", err)
	}
	if err := s.Store().ProposeMobilization("crown_rider", testutil.Westmark, 1); !errors.Is(err, ErrNothingPurchased) {
		t.Fatalf("expected ErrNothingPurchased, got %v", err)
	}

	if err := s.Store().ProposeMobilization("crown_spear", testutil.Westmark, 9); err != nil {
		t.Fatal(err)
	}
	pm := s.Store().PendingMobilization()
	if pm.Count != 3 || pm.MaxCount != 3 {
		t.Fatalf("expected clamp to pool of 3, got %d of %d", pm.Count, pm.MaxCount)
	}
}

func TestProposeMobilization_CappedByDestinationPower(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseMobilize)
	s.Snapshot().FactionPurchasedUnits = map[string][]authority.UnitStack{
		testutil.FactionCrown: {{UnitID: "crown_spear", Count: 5}},
	}
	fake.Actions.MobilizeOptions = &authority.MobilizeOptions{
		Territories: []string{testutil.Westmark},
		Capacity: authority.MobilizeCapacity{
			Territories: []authority.TerritoryCapacity{{TerritoryID: testutil.Westmark, Power: 3}},
		},
	}

	// Five spears in the pool, but westmark produces 3 power.
	if err := s.Store().ProposeMobilization("crown_spear", testutil.Westmark, 5); err != nil {
		t.Fatal(err)
	}
	pm := s.Store().PendingMobilization()
	if pm.Count != 3 || pm.MaxCount != 3 {
		t.Fatalf("expected cap at destination power 3, got %d of %d", pm.Count, pm.MaxCount)
	}
	if err := s.Store().UpdateMobilizationCount(5); err != nil {
		t.Fatal(err)
	}
	if got := s.Store().PendingMobilization().Count; got != 3 {
		t.Fatalf("count update should clamp to 3, got %d", got)
	}
}

func TestProposeMobilization_CommittedUnitsSpokenFor(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseMobilize)
	s.Snapshot().FactionPurchasedUnits = map[string][]authority.UnitStack{
		testutil.FactionCrown: {{UnitID: "crown_spear", Count: 3}},
	}
	s.Snapshot().PendingMobilizations = []authority.PendingMobilization{{
		Destination: testutil.Westmark,
		Units:       []authority.UnitStack{{UnitID: "crown_spear", Count: 2}},
	}}
	fake.Actions.MobilizeOptions = &authority.MobilizeOptions{Territories: []string{testutil.Westmark}}

	if err := s.Store().ProposeMobilization("crown_spear", testutil.Westmark, 3); err != nil {
		t.Fatal(err)
	}
	if got := s.Store().PendingMobilization().MaxCount; got != 1 {
		t.Fatalf("expected 1 unit left in pool, got %d", got)
	}
}

func TestConfirmMobilization(t *testing.T) {
	s, fake, _ := newTestSession(t, conquest.PhaseMobilize)
	s.Snapshot().FactionPurchasedUnits = map[string][]authority.UnitStack{
		testutil.FactionCrown: {{UnitID: "crown_spear", Count: 2}},
	}
	fake.Actions.MobilizeOptions = &authority.MobilizeOptions{Territories: []string{testutil.Westmark}}

	if err := s.Store().ProposeMobilization("crown_spear", testutil.Westmark, 2); err != nil {
		t.Fatal(err)
	}
	fake.Script(testutil.OK(*s.Snapshot()))
	if err := s.Store().ConfirmMobilization(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Store().PendingMobilization() != nil {
		t.Error("staged mobilization should clear after confirm")
	}

	found := false
	for _, call := range fake.Calls {
		if strings.HasPrefix(call, "mobilize "+testutil.Westmark) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a mobilize call")
	}
}

func TestReachableFrom_NonCombat(t *testing.T) {
	s, _, _ := newTestSession(t, conquest.PhaseNonCombatMove)

	got := s.Store().ReachableFrom(testutil.Ironvale, "crown_rider")
	if got[testutil.Westmark] != 3 || got[testutil.Blackmoor] != 3 {
		t.Fatalf("expected westmark and blackmoor with 3 riders, got %v", got)
	}
	if _, ok := got[testutil.Thornwood]; ok {
		t.Fatal("enemy territory is not a non-combat destination")
	}
}

func TestSelection(t *testing.T) {
	s, _, _ := newTestSession(t, conquest.PhaseCombatMove)
	st := s.Store()

	st.SelectStack(testutil.Ironvale, "crown_rider")
	sel := st.Selection()
	if sel.Territory != testutil.Ironvale || sel.StackUnitID != "crown_rider" {
		t.Fatalf("unexpected selection %+v", sel)
	}
	st.ClearSelection()
	if st.Selection() != (Selection{}) {
		t.Fatal("selection should clear")
	}
}
