package conquest

import (
	"sort"
	"strconv"
)

// Side identifies which combatant a dice group belongs to.
type Side string

const (
	SideAttacker Side = "attacker"
	SideDefender Side = "defender"
)

// DiceRolls is one group of dice sharing a target value, as reported by
// the authority. A roll hits when it is less than or equal to the target.
type DiceRolls struct {
	Rolls []int `json:"rolls"`
	Hits  int   `json:"hits"`
}

// RoundRecord is the authority's description of a single resolved combat
// round. It is immutable once received; the sequencer consumes it for one
// reveal cycle and then folds its casualties into the cumulative tally.
//
// Dice maps are keyed by target value rendered as a string, mirroring the
// wire format (JSON object keys).
type RoundRecord struct {
	Territory          string               `json:"territory"`
	Round              int                  `json:"round_number"`
	AttackerDice       map[string]DiceRolls `json:"attacker_dice"`
	DefenderDice       map[string]DiceRolls `json:"defender_dice"`
	AttackerHits       int                  `json:"attacker_hits"`
	DefenderHits       int                  `json:"defender_hits"`
	AttackerCasualties []string             `json:"attacker_casualties"`
	DefenderCasualties []string             `json:"defender_casualties"`
	AttackerWounded    []string             `json:"attacker_wounded"`
	DefenderWounded    []string             `json:"defender_wounded"`
	AttackersRemaining int                  `json:"attackers_remaining"`
	DefendersRemaining int                  `json:"defenders_remaining"`
	AttackerHitsByType map[string]int       `json:"attacker_hits_by_unit_type,omitempty"`
	DefenderHitsByType map[string]int       `json:"defender_hits_by_unit_type,omitempty"`
	ArcherPrefire      bool                 `json:"is_archer_prefire,omitempty"`
}

// DiceGroup is one reveal row: all dice rolled at a single target value
// for one side.
type DiceGroup struct {
	Side   Side
	Target int
	Rolls  []int
	Hits   int
}

// RevealOrder returns the dice groups of the round in the fixed reveal
// order: attacker groups ascending by attack value, then defender groups
// ascending by defense value. Groups with no rolls are skipped. The order
// is deterministic so tests can assert it independent of timing.
func (r *RoundRecord) RevealOrder() []DiceGroup {
	rows := sortedGroups(SideAttacker, r.AttackerDice)
	rows = append(rows, sortedGroups(SideDefender, r.DefenderDice)...)
	return rows
}

func sortedGroups(side Side, dice map[string]DiceRolls) []DiceGroup {
	targets := make([]int, 0, len(dice))
	byTarget := make(map[int]DiceRolls, len(dice))
	for key, group := range dice {
		if len(group.Rolls) == 0 {
			continue
		}
		target, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		targets = append(targets, target)
		byTarget[target] = group
	}
	sort.Ints(targets)

	rows := make([]DiceGroup, 0, len(targets))
	for _, target := range targets {
		group := byTarget[target]
		rows = append(rows, DiceGroup{
			Side:   side,
			Target: target,
			Rolls:  group.Rolls,
			Hits:   group.Hits,
		})
	}
	return rows
}

// UnitRef is a lightweight roster entry snapshotted when a battle opens,
// so reveal animations keep showing units even after the background
// snapshot drops casualties.
type UnitRef struct {
	InstanceID string
	UnitID     string
	BaseHealth int
}

// DeriveCasualties returns the instance ids present in the before roster
// but absent from the after set. It is the fallback when a round payload
// omits explicit casualty lists.
func DeriveCasualties(before []UnitRef, after map[string]bool) []string {
	var gone []string
	for _, u := range before {
		if !after[u.InstanceID] {
			gone = append(gone, u.InstanceID)
		}
	}
	return gone
}

// HitsByUnitType reconstructs the per-stack hit counts the UI shows as
// badges: casualties count as base-health hits, wounded as one hit each.
// Used only when the round payload omits the authority's own map.
func HitsByUnitType(roster []UnitRef, casualties, wounded []string) map[string]int {
	byID := make(map[string]UnitRef, len(roster))
	for _, u := range roster {
		byID[u.InstanceID] = u
	}
	hits := make(map[string]int)
	for _, id := range casualties {
		if u, ok := byID[id]; ok {
			h := u.BaseHealth
			if h <= 0 {
				h = 1
			}
			hits[u.UnitID] += h
		}
	}
	for _, id := range wounded {
		if u, ok := byID[id]; ok {
			hits[u.UnitID]++
		}
	}
	return hits
}
