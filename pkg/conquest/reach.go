package conquest

// Board is the minimal view of territory occupation the reachability
// search needs. The session layer implements it over the current
// authoritative snapshot.
type Board interface {
	// Owner returns the owning faction of a territory, or "" if unowned.
	// ok is false when the territory does not exist in the snapshot.
	Owner(territoryID string) (owner string, ok bool)
	// HasHostileUnits reports whether the territory contains units whose
	// faction is not allied with the given faction. Factionless units
	// (neutral monsters) count as hostile to everyone.
	HasHostileUnits(territoryID, faction string) bool
}

// Reachable computes the territories a unit can legally move to from start
// this phase, mapped to the movement cost of reaching them.
//
// Combat moves may transit friendly and allied territory freely but
// terminate on the first enemy-held territory (or neutral territory with
// hostile units), which is a destination only. Non-combat moves may only
// traverse friendly, allied, or empty neutral territory, and every
// territory entered is a destination. Aerial units may fly over enemy
// territory in any phase but may not end a non-combat move there.
//
// This is the local fallback used before the authority's per-unit
// destination list for the phase has loaded; when that list is available
// it wins (see the session store).
func Reachable(defs *Definitions, board Board, faction, start, unitID string, movement int, phase Phase) map[string]int {
	def, ok := defs.Units[unitID]
	if !ok || movement <= 0 {
		return map[string]int{}
	}
	aerial := def.HasTag(TagAerial)
	combatMove := phase == PhaseCombatMove

	type hop struct {
		territory string
		dist      int
	}

	reachable := make(map[string]int)
	visited := map[string]int{start: 0}
	queue := []hop{{start, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.dist > 0 {
			reachable[cur.territory] = cur.dist
		}
		if cur.dist >= movement {
			continue
		}

		tdef, ok := defs.Territories[cur.territory]
		if !ok {
			continue
		}
		for _, adj := range tdef.Adjacent {
			next := cur.dist + 1
			if best, seen := visited[adj]; seen && best <= next {
				continue
			}
			owner, exists := board.Owner(adj)
			if !exists {
				continue
			}

			neutral := owner == ""
			hostile := owner != "" && owner != faction && !defs.SameAlliance(owner, faction)
			contested := neutral && board.HasHostileUnits(adj, faction)

			canPass := true
			if hostile && !aerial {
				// Enemy territory blocks ground transit. On a combat move
				// it is still a valid terminal destination (below).
				canPass = false
			}
			if combatMove && contested && !aerial {
				canPass = false
			}
			if combatMove && neutral && !contested {
				// Empty neutral territory cannot be crossed while
				// declaring an attack.
				canPass = false
			}

			switch {
			case canPass:
				visited[adj] = next
				queue = append(queue, hop{adj, next})
			case combatMove && !aerial && (hostile || contested):
				// Terminal attack destination: record but do not expand.
				if best, seen := visited[adj]; !seen || next < best {
					visited[adj] = next
					reachable[adj] = next
				}
			}
		}
	}

	return filterByPhase(defs, board, faction, phase, reachable)
}

// filterByPhase removes destinations that are reachable as waypoints but
// not legal endpoints for the phase.
func filterByPhase(defs *Definitions, board Board, faction string, phase Phase, reachable map[string]int) map[string]int {
	out := make(map[string]int, len(reachable))
	for tid, dist := range reachable {
		owner, ok := board.Owner(tid)
		if !ok {
			continue
		}
		neutral := owner == ""
		hostile := owner != "" && owner != faction && !defs.SameAlliance(owner, faction)
		contested := neutral && board.HasHostileUnits(tid, faction)

		switch phase {
		case PhaseCombatMove:
			if hostile || contested {
				out[tid] = dist
			}
		case PhaseNonCombatMove:
			if neutral && !contested {
				out[tid] = dist
			} else if !neutral && !hostile {
				out[tid] = dist
			}
		default:
			out[tid] = dist
		}
	}
	return out
}
