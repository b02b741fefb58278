package conquest

import "testing"

func TestRevealOrder(t *testing.T) {
	r := &RoundRecord{
		AttackerDice: map[string]DiceRolls{
			"4": {Rolls: []int{5, 2}, Hits: 1},
			"2": {Rolls: []int{1}, Hits: 1},
		},
		DefenderDice: map[string]DiceRolls{
			"3": {Rolls: []int{3, 6}, Hits: 1},
		},
	}

	rows := r.RevealOrder()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []struct {
		side   Side
		target int
	}{
		{SideAttacker, 2},
		{SideAttacker, 4},
		{SideDefender, 3},
	}
	for i, w := range want {
		if rows[i].Side != w.side || rows[i].Target != w.target {
			t.Errorf("row %d: expected %s@%d, got %s@%d", i, w.side, w.target, rows[i].Side, rows[i].Target)
		}
	}
}

func TestRevealOrder_SkipsEmptyAndBadGroups(t *testing.T) {
	r := &RoundRecord{
		AttackerDice: map[string]DiceRolls{
			"2":   {Rolls: []int{1}, Hits: 1},
			"5":   {},
			"bad": {Rolls: []int{4}},
		},
	}

	rows := r.RevealOrder()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Target != 2 {
		t.Errorf("expected target 2, got %d", rows[0].Target)
	}
}

func TestRevealOrder_DefenderOnlyPrefire(t *testing.T) {
	// An archer prefire volley has no attacker groups at all.
	r := &RoundRecord{
		ArcherPrefire: true,
		DefenderDice: map[string]DiceRolls{
			"2": {Rolls: []int{2, 5}, Hits: 1},
		},
	}

	rows := r.RevealOrder()
	if len(rows) != 1 || rows[0].Side != SideDefender {
		t.Fatalf("expected a single defender row, got %v", rows)
	}
}

func TestDeriveCasualties(t *testing.T) {
	before := []UnitRef{
		{InstanceID: "a", UnitID: "spear"},
		{InstanceID: "b", UnitID: "spear"},
		{InstanceID: "c", UnitID: "rider"},
	}
	after := map[string]bool{"a": true, "c": true}

	gone := DeriveCasualties(before, after)
	if len(gone) != 1 || gone[0] != "b" {
		t.Fatalf("expected [b], got %v", gone)
	}
}

func TestHitsByUnitType(t *testing.T) {
	roster := []UnitRef{
		{InstanceID: "d1", UnitID: "drake", BaseHealth: 2},
		{InstanceID: "s1", UnitID: "spear", BaseHealth: 1},
		{InstanceID: "s2", UnitID: "spear", BaseHealth: 1},
	}

	// A dead drake absorbed its full health in hits; the wounded spear
	// took one.
	hits := HitsByUnitType(roster, []string{"d1"}, []string{"s1"})
	if hits["drake"] != 2 {
		t.Errorf("expected 2 drake hits, got %d", hits["drake"])
	}
	if hits["spear"] != 1 {
		t.Errorf("expected 1 spear hit, got %d", hits["spear"])
	}
}

func TestHitsByUnitType_UnknownInstancesIgnored(t *testing.T) {
	hits := HitsByUnitType(nil, []string{"ghost"}, []string{"ghost"})
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %v", hits)
	}
}
