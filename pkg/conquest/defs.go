// Package conquest implements the pure rules layer of the client: static
// definitions, movement reachability, purchase cart arithmetic, and combat
// round view reconstruction. Nothing in this package performs I/O; the
// session layer feeds it snapshots received from the remote authority.
package conquest

// Phase is one of the five named stages of a faction's turn. Income
// collection happens server-side between mobilize and the next purchase
// and is never a client-visible phase.
type Phase string

const (
	PhasePurchase      Phase = "purchase"
	PhaseCombatMove    Phase = "combat_move"
	PhaseCombat        Phase = "combat"
	PhaseNonCombatMove Phase = "non_combat_move"
	PhaseMobilize      Phase = "mobilization"
)

// NextPhase returns the phase that follows p in the fixed turn cycle.
// Mobilize wraps to purchase (the next faction's turn).
func NextPhase(p Phase) Phase {
	switch p {
	case PhasePurchase:
		return PhaseCombatMove
	case PhaseCombatMove:
		return PhaseCombat
	case PhaseCombat:
		return PhaseNonCombatMove
	case PhaseNonCombatMove:
		return PhaseMobilize
	default:
		return PhasePurchase
	}
}

// IsMovePhase reports whether units are ordered to move in phase p.
func IsMovePhase(p Phase) bool {
	return p == PhaseCombatMove || p == PhaseNonCombatMove
}

// TagAerial marks units that may fly over enemy territory.
const TagAerial = "aerial"

// ArchetypeArcher marks unit types that fire a defensive prefire volley
// before round 1 of a battle.
const ArchetypeArcher = "archer"

// UnitDef is the immutable definition of a unit type, received from the
// authority's definitions payload.
type UnitDef struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Faction     string         `json:"faction"`
	Archetype   string         `json:"archetype"`
	Tags        []string       `json:"tags"`
	Attack      int            `json:"attack"`
	Defense     int            `json:"defense"`
	Movement    int            `json:"movement"`
	Health      int            `json:"health"`
	Cost        map[string]int `json:"cost"`
	Dice        int            `json:"dice"`
	Purchasable bool           `json:"purchasable"`
	Icon        string         `json:"icon,omitempty"`
}

// HasTag reports whether the unit definition carries the given tag.
func (d *UnitDef) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TerritoryDef is the immutable definition of a territory.
type TerritoryDef struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	TerrainType  string         `json:"terrain_type"`
	Adjacent     []string       `json:"adjacent"`
	Produces     map[string]int `json:"produces"`
	IsStronghold bool           `json:"is_stronghold"`
	Ownable      bool           `json:"ownable"`
}

// FactionDef is the immutable definition of a faction.
type FactionDef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Alliance    string `json:"alliance"`
	Capital     string `json:"capital"`
	Color       string `json:"color"`
	Icon        string `json:"icon,omitempty"`
}

// Definitions bundles all static game data for one game. The authority
// snapshots these per game so rule changes never affect running games.
type Definitions struct {
	Units       map[string]UnitDef      `json:"units"`
	Territories map[string]TerritoryDef `json:"territories"`
	Factions    map[string]FactionDef   `json:"factions"`
}

// UnitFaction returns the owning faction of a unit type, or "" if unknown.
func (d *Definitions) UnitFaction(unitID string) string {
	if u, ok := d.Units[unitID]; ok {
		return u.Faction
	}
	return ""
}

// SameAlliance reports whether two factions belong to the same alliance.
// Unknown factions are never allied with anything.
func (d *Definitions) SameAlliance(a, b string) bool {
	fa, okA := d.Factions[a]
	fb, okB := d.Factions[b]
	return okA && okB && fa.Alliance == fb.Alliance
}
