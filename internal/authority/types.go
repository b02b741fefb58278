package authority

import (
	"encoding/json"
	"sort"

	"github.com/freeeve/warfront/client/pkg/conquest"
)

// Unit is a single unit instance as it appears in the authoritative
// snapshot. The owning faction is derived from UnitID via the game's
// definitions.
type Unit struct {
	InstanceID        string `json:"instance_id"`
	UnitID            string `json:"unit_id"`
	RemainingMovement int    `json:"remaining_movement"`
	RemainingHealth   int    `json:"remaining_health"`
	BaseMovement      int    `json:"base_movement"`
	BaseHealth        int    `json:"base_health"`
}

// TerritoryState is the mutable state of one territory in the snapshot.
type TerritoryState struct {
	Owner         string `json:"owner"`
	OriginalOwner string `json:"original_owner,omitempty"`
	Units         []Unit `json:"units"`
}

// UnitStack counts identical units, used for the purchased-but-unmobilized
// pool and for mobilization orders.
type UnitStack struct {
	UnitID string `json:"unit_id"`
	Count  int    `json:"count"`
}

// PendingMove is a committed-but-uncommitted move mirrored from the
// snapshot, cancelable by index until its phase ends.
type PendingMove struct {
	FromTerritory   string   `json:"from_territory"`
	ToTerritory     string   `json:"to_territory"`
	UnitInstanceIDs []string `json:"unit_instance_ids"`
	Phase           string   `json:"phase"`
}

// PendingMobilization is a committed mobilization awaiting phase end.
type PendingMobilization struct {
	Destination string      `json:"destination"`
	Units       []UnitStack `json:"units"`
}

// ActiveCombat is the authority's record of an ongoing multi-round battle.
type ActiveCombat struct {
	AttackerFaction     string   `json:"attacker_faction"`
	TerritoryID         string   `json:"territory_id"`
	AttackerInstanceIDs []string `json:"attacker_instance_ids"`
	RoundNumber         int      `json:"round_number"`
}

// Snapshot is the complete authoritative game state. It is mirrored
// read-only by the session and replaced wholesale on every refresh;
// nothing on the client ever patches it in place.
type Snapshot struct {
	TurnNumber              int                       `json:"turn_number"`
	CurrentFaction          string                    `json:"current_faction"`
	Phase                   conquest.Phase            `json:"phase"`
	Territories             map[string]TerritoryState `json:"territories"`
	FactionResources        map[string]map[string]int `json:"faction_resources"`
	FactionPurchasedUnits   map[string][]UnitStack    `json:"faction_purchased_units"`
	ActiveCombat            *ActiveCombat             `json:"active_combat"`
	PendingMoves            []PendingMove             `json:"pending_moves"`
	PendingMobilizations    []PendingMobilization     `json:"pending_mobilizations"`
	MobilizationStrongholds []string                  `json:"mobilization_strongholds"`
	Winner                  string                    `json:"winner,omitempty"`
}

// Resources returns a faction's current ledger, never nil.
func (s *Snapshot) Resources(faction string) map[string]int {
	if r, ok := s.FactionResources[faction]; ok {
		return r
	}
	return map[string]int{}
}

// PurchasedCount returns how many units the faction has purchased this
// turn but not yet mobilized.
func (s *Snapshot) PurchasedCount(faction string) int {
	total := 0
	for _, stack := range s.FactionPurchasedUnits[faction] {
		total += stack.Count
	}
	return total
}

// GameEvent is one discrete event the authority attaches to a mutating
// response. The payload stays raw until a caller decodes it (see
// DecodeEvent); the client appends most events to its display log without
// interpreting them.
type GameEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// GameBundle is the response to a full game fetch: snapshot, the game's
// definitions snapshot, and whether the authenticated player may act.
type GameBundle struct {
	GameID      string               `json:"game_id"`
	State       Snapshot             `json:"state"`
	Definitions conquest.Definitions `json:"definitions"`
	CanAct      bool                 `json:"can_act"`
}

// ActionResponse is the response to every mutating call: the new full
// snapshot plus the events the action produced.
type ActionResponse struct {
	State  Snapshot    `json:"state"`
	Events []GameEvent `json:"events"`
	CanAct bool        `json:"can_act"`
}

// PurchasableUnit describes one unit type the acting faction can buy.
type PurchasableUnit struct {
	UnitID        string         `json:"unit_id"`
	DisplayName   string         `json:"display_name"`
	Cost          map[string]int `json:"cost"`
	MaxAffordable int            `json:"max_affordable"`
	Attack        int            `json:"attack"`
	Defense       int            `json:"defense"`
	Movement      int            `json:"movement"`
	Health        int            `json:"health"`
	Dice          int            `json:"dice"`
}

// MoveableUnit pairs a unit with its authoritative destination list.
// Destinations maps territory id to movement cost; it reflects rules the
// local BFS does not model (movement already spent, special transit), so
// it wins over the fallback whenever present.
type MoveableUnit struct {
	Territory string `json:"territory"`
	Unit      struct {
		InstanceID        string `json:"instance_id"`
		UnitID            string `json:"unit_id"`
		TerritoryID       string `json:"territory_id"`
		RemainingMovement int    `json:"remaining_movement"`
	} `json:"unit"`
	Destinations map[string]int `json:"destinations"`
}

// ContestedTerritory is a declared battle eligible for the sequencer.
type ContestedTerritory struct {
	TerritoryID     string   `json:"territory_id"`
	AttackerCount   int      `json:"attacker_count"`
	DefenderCount   int      `json:"defender_count"`
	AttackerUnitIDs []string `json:"attacker_unit_ids"`
	DefenderUnitIDs []string `json:"defender_unit_ids"`
}

// RetreatOptions lists the authority-validated retreat destinations for
// the active battle.
type RetreatOptions struct {
	CanRetreat        bool     `json:"can_retreat"`
	ValidDestinations []string `json:"valid_destinations"`
}

// TerritoryCapacity is one stronghold's per-call mobilization limit,
// its power production.
type TerritoryCapacity struct {
	TerritoryID string `json:"territory_id"`
	Power       int    `json:"power"`
}

// MobilizeCapacity is the per-stronghold and total mobilization budget.
type MobilizeCapacity struct {
	TotalCapacity int                 `json:"total_capacity"`
	Territories   []TerritoryCapacity `json:"territories"`
}

// MobilizeOptions describes where and what the faction can mobilize.
type MobilizeOptions struct {
	Territories  []string         `json:"territories"`
	Capacity     MobilizeCapacity `json:"capacity"`
	PendingUnits []UnitStack      `json:"pending_units"`
}

// AvailableActions is the authority's per-phase action menu for the
// acting faction. Fields are populated per phase; absent sections stay
// zero-valued.
type AvailableActions struct {
	Faction     string         `json:"faction"`
	Phase       conquest.Phase `json:"phase"`
	CanEndPhase bool           `json:"can_end_phase"`
	CanEndTurn  bool           `json:"can_end_turn,omitempty"`

	// Purchase phase.
	PurchasableUnits     []PurchasableUnit `json:"purchasable_units,omitempty"`
	MobilizationCapacity int               `json:"mobilization_capacity,omitempty"`
	PurchasedUnitsCount  int               `json:"purchased_units_count,omitempty"`
	CampCost             int               `json:"camp_cost,omitempty"`

	// Move phases.
	MoveableUnits []MoveableUnit `json:"moveable_units,omitempty"`

	// Combat phase.
	CombatTerritories []ContestedTerritory `json:"combat_territories,omitempty"`
	ActiveCombat      *ActiveCombat        `json:"active_combat,omitempty"`
	RetreatOptions    *RetreatOptions      `json:"retreat_options,omitempty"`

	// Mobilize phase.
	MobilizeOptions *MobilizeOptions `json:"mobilize_options,omitempty"`
}

// DestinationsFor returns the authoritative destination union for all
// moveable units of the given type at the given territory: destination ->
// instance ids able to reach it, most mobile first.
func (a *AvailableActions) DestinationsFor(territory, unitID string) map[string][]string {
	type mover struct {
		id       string
		mobility int
	}
	byDest := map[string][]mover{}
	for _, mu := range a.MoveableUnits {
		if mu.Territory != territory || mu.Unit.UnitID != unitID {
			continue
		}
		for dest := range mu.Destinations {
			byDest[dest] = append(byDest[dest], mover{mu.Unit.InstanceID, mu.Unit.RemainingMovement})
		}
	}
	out := make(map[string][]string, len(byDest))
	for dest, movers := range byDest {
		// Most mobile first, id as tiebreaker for determinism.
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
		out[dest] = ids
	}
	return out
}
